package retriever

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ragserve/ragserve/engine/embedder"
	"github.com/ragserve/ragserve/engine/vectordb"
	"github.com/ragserve/ragserve/pkg/logger"
)

// RetrievedPassage is a stored passage scored against a query. Score is
// 1 minus the cosine distance, so higher means more relevant.
type RetrievedPassage struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// Service answers similarity queries against the vector store.
type Service struct {
	store       vectordb.Store
	embedder    embedder.Embedder
	defaultTopK int
}

// ErrEmptyQuery reports a blank retrieval query.
var ErrEmptyQuery = errors.New("retriever: query must not be empty")

// NewService wires the retrieval pipeline.
func NewService(store vectordb.Store, emb embedder.Embedder, defaultTopK int) (*Service, error) {
	if store == nil {
		return nil, errors.New("retriever: store is required")
	}
	if emb == nil {
		return nil, errors.New("retriever: embedder is required")
	}
	if defaultTopK <= 0 {
		return nil, errors.New("retriever: default top_k must be greater than zero")
	}
	return &Service{store: store, embedder: emb, defaultTopK: defaultTopK}, nil
}

// Retrieve embeds the query once and returns the topK closest passages.
// An empty store short-circuits before any embedding call is made.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]RetrievedPassage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	ctx, span := otel.Tracer("ragserve.retriever").Start(ctx, "retriever.retrieve",
		trace.WithAttributes(attribute.Int("top_k", topK)),
	)
	defer span.End()
	log := logger.FromContext(ctx)

	count, err := s.store.Count(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retriever: count store: %w", err)
	}
	if count == 0 {
		log.Debug("retrieval skipped, store is empty")
		return nil, nil
	}

	started := time.Now()
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	matches, err := s.store.Query(ctx, embedding, topK)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retriever: query store: %w", err)
	}

	passages := make([]RetrievedPassage, len(matches))
	for i, match := range matches {
		passages[i] = RetrievedPassage{
			ID:       match.ID,
			Text:     match.Text,
			Score:    1 - match.Distance,
			Metadata: match.Metadata,
		}
	}
	span.SetAttributes(attribute.Int("results", len(passages)))
	recordRetrieval(ctx, topK, len(passages), time.Since(started))
	log.Debug("retrieval complete",
		"top_k", topK,
		"results", len(passages),
		"duration", time.Since(started),
	)
	return passages, nil
}
