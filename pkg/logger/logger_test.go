package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("ShouldWriteStructuredFields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := NewLogger(&Config{Level: DebugLevel, Output: buf})
		log.Info("document indexed", "document_id", "doc-1", "chunks", 3)
		out := buf.String()
		assert.Contains(t, out, "document indexed")
		assert.Contains(t, out, "document_id")
		assert.Contains(t, out, "doc-1")
	})
	t.Run("ShouldRespectLevel", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := NewLogger(&Config{Level: WarnLevel, Output: buf})
		log.Debug("hidden")
		log.Warn("visible")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})
	t.Run("ShouldCarryLoggerThroughContext", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := NewLogger(&Config{Level: InfoLevel, Output: buf}).With("component", "retriever")
		ctx := ContextWith(context.Background(), log)
		FromContext(ctx).Info("query executed")
		require.Contains(t, buf.String(), "retriever")
	})
	t.Run("ShouldFallBackToDefault", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
	})
	t.Run("ShouldEmitJSONWhenConfigured", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := NewLogger(&Config{Level: InfoLevel, Output: buf, JSON: true})
		log.Info("ready", "port", 8000)
		require.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
	})
}
