package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ingestMetricsOnce    sync.Once
	ingestMetricsErr     error
	documentsIndexed     metric.Int64Counter
	passagesIndexed      metric.Int64Counter
	ingestDurationSecond metric.Float64Histogram
)

func ensureIngestMetrics() error {
	ingestMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("ragserve.ingest")
		documentsIndexed, ingestMetricsErr = meter.Int64Counter(
			"ragserve_ingest_documents_total",
			metric.WithDescription("Documents successfully indexed"),
		)
		if ingestMetricsErr != nil {
			return
		}
		passagesIndexed, ingestMetricsErr = meter.Int64Counter(
			"ragserve_ingest_passages_total",
			metric.WithDescription("Passages embedded and stored"),
		)
		if ingestMetricsErr != nil {
			return
		}
		ingestDurationSecond, ingestMetricsErr = meter.Float64Histogram(
			"ragserve_ingest_duration_seconds",
			metric.WithDescription("End-to-end indexing latency per document"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
		)
	})
	return ingestMetricsErr
}

func recordIngest(ctx context.Context, fileType string, passages int, duration time.Duration) {
	if err := ensureIngestMetrics(); err != nil {
		return
	}
	label := strings.ToLower(strings.TrimSpace(fileType))
	if label == "" {
		label = "unknown"
	}
	attrs := metric.WithAttributes(attribute.String("file_type", label))
	documentsIndexed.Add(ctx, 1, attrs)
	passagesIndexed.Add(ctx, int64(passages), attrs)
	ingestDurationSecond.Record(ctx, duration.Seconds(), attrs)
}
