package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ragserve/ragserve/pkg/config"
)

func TestStoreAuth(t *testing.T) {
	t.Run("ShouldReturnNilWithoutAPIKey", func(t *testing.T) {
		assert.Nil(t, storeAuth(config.StoreConfig{}))
		assert.Nil(t, storeAuth(config.StoreConfig{APIKey: "   "}))
	})
	t.Run("ShouldMapAPIKeyOntoProviderAuth", func(t *testing.T) {
		auth := storeAuth(config.StoreConfig{APIKey: "qdrant-secret"})
		assert.Equal(t, map[string]string{"api_key": "qdrant-secret"}, auth)
	})
}
