package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragserve/ragserve/engine/vectordb"
)

type stubEmbedder struct {
	vector     []float32
	queryCalls int
	err        error
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	s.queryCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) Dimension() int { return len(s.vector) }

func newTestStore(t *testing.T) vectordb.Store {
	t.Helper()
	store, err := vectordb.New(context.Background(), &vectordb.Config{
		ID:        "test",
		Provider:  vectordb.ProviderMemory,
		Dimension: 3,
	})
	require.NoError(t, err)
	return store
}

func seedStore(t *testing.T, store vectordb.Store) {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), []vectordb.Record{
		{ID: "p1", Text: "about cats", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"filename": "cats.txt"}},
		{ID: "p2", Text: "about dogs", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"filename": "dogs.txt"}},
		{ID: "p3", Text: "about fish", Embedding: []float32{0, 0, 1}, Metadata: map[string]any{"filename": "fish.txt"}},
	}))
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldReturnPassagesOrderedByScore", func(t *testing.T) {
		store := newTestStore(t)
		seedStore(t, store)
		emb := &stubEmbedder{vector: []float32{1, 0.2, 0}}
		svc, err := NewService(store, emb, 5)
		require.NoError(t, err)

		passages, err := svc.Retrieve(ctx, "tell me about cats", 2)
		require.NoError(t, err)
		require.Len(t, passages, 2)
		assert.Equal(t, "p1", passages[0].ID)
		assert.Greater(t, passages[0].Score, passages[1].Score)
		assert.Equal(t, "cats.txt", passages[0].Metadata["filename"])
	})

	t.Run("ShouldComputeScoreAsOneMinusDistance", func(t *testing.T) {
		store := newTestStore(t)
		seedStore(t, store)
		emb := &stubEmbedder{vector: []float32{1, 0, 0}}
		svc, err := NewService(store, emb, 5)
		require.NoError(t, err)

		passages, err := svc.Retrieve(ctx, "cats", 1)
		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.InDelta(t, 1.0, passages[0].Score, 1e-6)
	})

	t.Run("ShouldSkipEmbeddingWhenStoreIsEmpty", func(t *testing.T) {
		store := newTestStore(t)
		emb := &stubEmbedder{vector: []float32{1, 0, 0}}
		svc, err := NewService(store, emb, 5)
		require.NoError(t, err)

		passages, err := svc.Retrieve(ctx, "anything", 3)
		require.NoError(t, err)
		assert.Nil(t, passages)
		assert.Zero(t, emb.queryCalls)
	})

	t.Run("ShouldUseDefaultTopKWhenUnset", func(t *testing.T) {
		store := newTestStore(t)
		seedStore(t, store)
		emb := &stubEmbedder{vector: []float32{1, 0, 0}}
		svc, err := NewService(store, emb, 2)
		require.NoError(t, err)

		passages, err := svc.Retrieve(ctx, "cats", 0)
		require.NoError(t, err)
		assert.Len(t, passages, 2)
	})

	t.Run("ShouldRejectEmptyQuery", func(t *testing.T) {
		store := newTestStore(t)
		svc, err := NewService(store, &stubEmbedder{vector: []float32{1, 0, 0}}, 5)
		require.NoError(t, err)
		_, err = svc.Retrieve(ctx, "   ", 3)
		require.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("ShouldPropagateEmbedderFailures", func(t *testing.T) {
		store := newTestStore(t)
		seedStore(t, store)
		sentinel := errors.New("embedding api down")
		svc, err := NewService(store, &stubEmbedder{vector: []float32{1, 0, 0}, err: sentinel}, 5)
		require.NoError(t, err)
		_, err = svc.Retrieve(ctx, "cats", 3)
		require.ErrorIs(t, err, sentinel)
	})
}
