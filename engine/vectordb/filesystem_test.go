package vectordb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, path string, dimension int) Store {
	t.Helper()
	store, err := newFileStore(&Config{ID: "test", Provider: ProviderFilesystem, Path: path, Dimension: dimension})
	require.NoError(t, err)
	return store
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldPersistRecordsAcrossReopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")
		store := newTestFileStore(t, path, 3)
		require.NoError(t, store.Insert(ctx, []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"filename": "a.txt"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0}},
		}))
		require.NoError(t, store.Close(ctx))

		reopened := newTestFileStore(t, path, 3)
		count, err := reopened.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		matches, err := reopened.Query(ctx, []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "alpha", matches[0].Text)
		assert.Equal(t, "a.txt", matches[0].Metadata["filename"])
	})

	t.Run("ShouldRejectReopenWithDifferentDimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")
		store := newTestFileStore(t, path, 3)
		require.NoError(t, store.Insert(ctx, []Record{{ID: "a", Embedding: []float32{1, 0, 0}}}))

		_, err := newFileStore(&Config{ID: "test", Provider: ProviderFilesystem, Path: path, Dimension: 5})
		require.Error(t, err)
	})

	t.Run("ShouldScanEntriesSortedByID", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")
		store := newTestFileStore(t, path, 2)
		require.NoError(t, store.Insert(ctx, []Record{
			{ID: "z", Embedding: []float32{1, 0}},
			{ID: "a", Embedding: []float32{0, 1}},
		}))
		entries, err := store.Scan(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "a", entries[0].ID)
		assert.Equal(t, "z", entries[1].ID)
	})

	t.Run("ShouldStartEmptyWhenSnapshotMissing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "vectors.json")
		store := newTestFileStore(t, path, 2)
		count, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("ShouldFailInsertWhenDimensionMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vectors.json")
		store := newTestFileStore(t, path, 3)
		err := store.Insert(ctx, []Record{{ID: "bad", Embedding: []float32{1}}})
		require.Error(t, err)
	})
}
