package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RAGSERVE_"

// Load resolves the configuration from defaults and RAGSERVE_* environment
// variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyAPIKeyFallbacks(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// transformEnvKey converts environment variable names to koanf paths.
// For example: SERVER_PORT -> server.port, UPLOAD_MAX_FILE_SIZE_MB ->
// upload.max_file_size_mb. The first segment is the section; the remainder
// is the field name.
func transformEnvKey(s string) string {
	s = strings.ToLower(s)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' })
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

// applyAPIKeyFallbacks honors the conventional OPENAI_API_KEY variable when
// no service-scoped key is set.
func applyAPIKeyFallbacks(cfg *Config) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return
	}
	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = key
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
}

// Validate enforces field constraints plus cross-field invariants the tag
// syntax cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: configuration is required")
	}
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	if cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return fmt.Errorf(
			"config: chunking overlap %d must be smaller than size %d",
			cfg.Chunking.Overlap,
			cfg.Chunking.Size,
		)
	}
	switch cfg.Store.Provider {
	case "filesystem":
		if strings.TrimSpace(cfg.Store.Path) == "" {
			return fmt.Errorf("config: store path is required for the filesystem provider")
		}
	case "qdrant", "pgvector", "redis":
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return fmt.Errorf("config: store dsn is required for the %s provider", cfg.Store.Provider)
		}
	}
	return nil
}
