package vectordb

import (
	"context"
	"math"
)

// Provider enumerates supported vector database backends.
type Provider string

const (
	ProviderPGVector Provider = "pgvector"
	ProviderQdrant   Provider = "qdrant"
	ProviderRedis    Provider = "redis"
	// ProviderFilesystem persists embeddings to a local JSON-backed store.
	ProviderFilesystem Provider = "filesystem"
	// ProviderMemory keeps embeddings in process memory only.
	ProviderMemory Provider = "memory"
)

const defaultTopK = 5

// Record represents a passage persisted to the vector store.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// Match captures a similarity search result. Distance is the cosine distance
// to the query vector; smaller means more similar.
type Match struct {
	ID       string
	Distance float64
	Text     string
	Metadata map[string]any
}

// Entry is a lightweight record view returned by Scan, carrying identity and
// metadata without the embedding payload.
type Entry struct {
	ID       string
	Metadata map[string]any
}

// Store exposes the contract for ingestion, retrieval, and inventory.
type Store interface {
	Insert(ctx context.Context, records []Record) error
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Scan(ctx context.Context) ([]Entry, error)
	Close(ctx context.Context) error
}

// Config captures normalized connection details for a vector database.
type Config struct {
	ID         string
	Provider   Provider
	DSN        string
	Path       string
	Table      string
	Collection string
	Dimension  int
	Auth       map[string]string
	MaxTopK    int
}

// cosineDistance computes 1 minus the cosine similarity of two vectors.
// Zero-magnitude vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func clampTopK(topK, maxTopK int) int {
	if topK <= 0 {
		topK = defaultTopK
	}
	if maxTopK > 0 && topK > maxTopK {
		topK = maxTopK
	}
	return topK
}
