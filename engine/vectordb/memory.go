package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ragserve/ragserve/engine/core"
)

// memoryStore keeps records in process memory. It backs tests and ephemeral
// deployments where persistence across restarts is not required.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	maxTopK   int
	records   map[string]Record
}

func newMemoryStore(cfg *Config) Store {
	return &memoryStore{
		dimension: cfg.Dimension,
		maxTopK:   cfg.MaxTopK,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Insert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf(
				"memory: record %q dimension mismatch (got %d want %d)",
				rec.ID,
				len(rec.Embedding),
				s.dimension,
			)
		}
		s.records[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		}
	}
	return nil
}

func (s *memoryStore) Query(_ context.Context, embedding []float32, topK int) ([]Match, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("memory: query dimension mismatch (got %d want %d)", len(embedding), s.dimension)
	}
	topK = clampTopK(topK, s.maxTopK)
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, Match{
			ID:       rec.ID,
			Distance: cosineDistance(rec.Embedding, embedding),
			Text:     rec.Text,
			Metadata: core.CloneMap(rec.Metadata),
		})
	}
	sortMatches(candidates)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *memoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *memoryStore) Scan(context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0, len(s.records))
	for _, rec := range s.records {
		entries = append(entries, Entry{ID: rec.ID, Metadata: core.CloneMap(rec.Metadata)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// sortMatches orders by ascending distance, breaking ties by ID so results
// stay deterministic across runs.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Distance < matches[j].Distance
	})
}
