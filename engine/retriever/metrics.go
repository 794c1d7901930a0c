package retriever

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	retrievalMetricsOnce sync.Once
	retrievalMetricsErr  error
	retrievalLatency     metric.Float64Histogram
	retrievalResults     metric.Float64Histogram
)

func ensureRetrievalMetrics() error {
	retrievalMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("ragserve.retriever")
		retrievalLatency, retrievalMetricsErr = meter.Float64Histogram(
			"ragserve_retrieval_duration_seconds",
			metric.WithDescription("Query embedding plus similarity search latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2),
		)
		if retrievalMetricsErr != nil {
			return
		}
		retrievalResults, retrievalMetricsErr = meter.Float64Histogram(
			"ragserve_retrieval_results_per_query",
			metric.WithDescription("Passages returned per retrieval"),
			metric.WithExplicitBucketBoundaries(0, 1, 2, 5, 10),
		)
	})
	return retrievalMetricsErr
}

func recordRetrieval(ctx context.Context, topK int, results int, duration time.Duration) {
	if err := ensureRetrievalMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("top_k", topK))
	retrievalLatency.Record(ctx, duration.Seconds(), attrs)
	retrievalResults.Record(ctx, float64(results), attrs)
}
