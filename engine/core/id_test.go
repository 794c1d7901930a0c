package core_test

import (
	"testing"

	"github.com/ragserve/ragserve/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Run("Should generate a new unique ID", func(t *testing.T) {
		id1, err := core.NewID()
		require.NoError(t, err)
		assert.False(t, id1.IsZero())
		id2, err := core.NewID()
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2, "IDs should be unique")
	})
}

func TestID_IsZero(t *testing.T) {
	t.Run("Should return true for zero-value ID", func(t *testing.T) {
		var zeroID core.ID
		assert.True(t, zeroID.IsZero())
	})
	t.Run("Should return false for non-zero ID", func(t *testing.T) {
		assert.False(t, core.MustNewID().IsZero())
	})
}

func TestCloneMap(t *testing.T) {
	t.Run("Should copy entries without aliasing", func(t *testing.T) {
		src := map[string]any{"filename": "a.txt", "chunk_index": 1}
		dst := core.CloneMap(src)
		dst["chunk_index"] = 2
		assert.Equal(t, 1, src["chunk_index"])
	})
	t.Run("Should return nil for empty input", func(t *testing.T) {
		assert.Nil(t, core.CloneMap(map[string]string(nil)))
	})
}
