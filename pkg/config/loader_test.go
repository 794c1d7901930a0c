package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("ShouldResolveDefaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, 1000, cfg.Chunking.Size)
		assert.Equal(t, 200, cfg.Chunking.Overlap)
		assert.Equal(t, "filesystem", cfg.Store.Provider)
		assert.Equal(t, 10, cfg.Store.MaxTopK)
		assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
		assert.Equal(t, 5, cfg.Retrieval.TopK)
	})
	t.Run("ShouldOverrideFromEnvironment", func(t *testing.T) {
		t.Setenv("RAGSERVE_SERVER_PORT", "9000")
		t.Setenv("RAGSERVE_CHUNKING_SIZE", "500")
		t.Setenv("RAGSERVE_STORE_PROVIDER", "memory")
		t.Setenv("RAGSERVE_STORE_API_KEY", "qdrant-secret")
		t.Setenv("RAGSERVE_STORE_MAX_TOP_K", "25")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 500, cfg.Chunking.Size)
		assert.Equal(t, "memory", cfg.Store.Provider)
		assert.Equal(t, "qdrant-secret", cfg.Store.APIKey)
		assert.Equal(t, 25, cfg.Store.MaxTopK)
	})
	t.Run("ShouldFallBackToOpenAIKey", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.Embedder.APIKey)
		assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	})
	t.Run("ShouldRejectOverlapNotSmallerThanSize", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.Overlap = cfg.Chunking.Size
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "overlap")
	})
	t.Run("ShouldRejectMissingDSNForRemoteStores", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Provider = "qdrant"
		cfg.Store.DSN = ""
		require.Error(t, Validate(cfg))
	})
	t.Run("ShouldRejectUnknownStoreProvider", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Provider = "chroma"
		require.Error(t, Validate(cfg))
	})
}

func TestTransformEnvKey(t *testing.T) {
	assert.Equal(t, "server.port", transformEnvKey("SERVER_PORT"))
	assert.Equal(t, "upload.max_file_size_mb", transformEnvKey("UPLOAD_MAX_FILE_SIZE_MB"))
	assert.Equal(t, "log.level", transformEnvKey("LOG_LEVEL"))
	assert.Equal(t, "store", transformEnvKey("STORE"))
}
