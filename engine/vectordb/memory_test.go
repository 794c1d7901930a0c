package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&Config{Dimension: 4})

	t.Run("ShouldInsertAndQueryByCosineDistance", func(t *testing.T) {
		records := []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"kind": "one"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"kind": "two"}},
		}
		require.NoError(t, store.Insert(ctx, records))
		matches, err := store.Query(ctx, []float32{1, 0, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
		assert.InDelta(t, 0, matches[0].Distance, 1e-9)
	})

	t.Run("ShouldOrderMatchesByAscendingDistance", func(t *testing.T) {
		matches, err := store.Query(ctx, []float32{1, 0.1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "b", matches[1].ID)
		assert.Less(t, matches[0].Distance, matches[1].Distance)
	})

	t.Run("ShouldCountRecords", func(t *testing.T) {
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("ShouldScanEntriesWithMetadata", func(t *testing.T) {
		entries, err := store.Scan(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].ID)
		assert.Equal(t, "one", entries[0].Metadata["kind"])
	})

	t.Run("ShouldOverwriteRecordWithSameID", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, []Record{
			{ID: "a", Text: "alpha v2", Embedding: []float32{0, 0, 1, 0}},
		}))
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("ShouldFailInsertWhenDimensionMismatch", func(t *testing.T) {
		mismatchStore := newMemoryStore(&Config{Dimension: 4})
		err := mismatchStore.Insert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 1, 1}}})
		require.Error(t, err)
	})

	t.Run("ShouldFailQueryWhenDimensionMismatch", func(t *testing.T) {
		otherStore := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, otherStore.Insert(ctx, []Record{{ID: "c", Embedding: []float32{1, 0}}}))
		_, err := otherStore.Query(ctx, []float32{1, 0, 0}, 1)
		require.Error(t, err)
	})

	t.Run("ShouldRespectTopKWhenExceedingAvailableRecords", func(t *testing.T) {
		limitedStore := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "d", Text: "delta", Embedding: []float32{1, 0}},
			{ID: "e", Text: "echo", Embedding: []float32{0, 1}},
		}
		require.NoError(t, limitedStore.Insert(ctx, records))
		matches, err := limitedStore.Query(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})

	t.Run("ShouldClampTopKToConfiguredMaximum", func(t *testing.T) {
		cappedStore := newMemoryStore(&Config{Dimension: 2, MaxTopK: 1})
		records := []Record{
			{ID: "f", Embedding: []float32{1, 0}},
			{ID: "g", Embedding: []float32{0, 1}},
		}
		require.NoError(t, cappedStore.Insert(ctx, records))
		matches, err := cappedStore.Query(ctx, []float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
	})
}
