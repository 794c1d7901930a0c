package config

// Config aggregates every tunable of the service. Values resolve in order:
// struct defaults, then RAGSERVE_* environment variables.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upload    UploadConfig    `koanf:"upload"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	Embedder  EmbedderConfig  `koanf:"embedder"`
	Store     StoreConfig     `koanf:"store"`
	LLM       LLMConfig       `koanf:"llm"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host             string   `koanf:"host"`
	Port             int      `koanf:"port"              validate:"gte=1,lte=65535"`
	CORSAllowOrigins []string `koanf:"cors_allow_origins"`
}

type UploadConfig struct {
	Dir           string   `koanf:"dir"              validate:"required"`
	MaxFileSizeMB int      `koanf:"max_file_size_mb" validate:"gte=1"`
	AllowedTypes  []string `koanf:"allowed_types"    validate:"min=1"`
}

type ChunkingConfig struct {
	Size    int `koanf:"size"    validate:"gt=0"`
	Overlap int `koanf:"overlap" validate:"gt=0"`
}

type EmbedderConfig struct {
	Provider  string `koanf:"provider"  validate:"oneof=openai"`
	Model     string `koanf:"model"     validate:"required"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Dimension int    `koanf:"dimension" validate:"gt=0"`
	BatchSize int    `koanf:"batch_size" validate:"gt=0"`
	CacheSize int    `koanf:"cache_size" validate:"gte=0"`
}

type StoreConfig struct {
	Provider   string `koanf:"provider"   validate:"oneof=memory filesystem qdrant pgvector redis"`
	Path       string `koanf:"path"`
	DSN        string `koanf:"dsn"`
	Collection string `koanf:"collection"`
	Table      string `koanf:"table"`
	APIKey     string `koanf:"api_key"`
	MaxTopK    int    `koanf:"max_top_k" validate:"gte=0"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"    validate:"oneof=openai"`
	Model       string  `koanf:"model"       validate:"required"`
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	MaxTokens   int     `koanf:"max_tokens"  validate:"gt=0"`
	Temperature float64 `koanf:"temperature" validate:"gte=0,lte=2"`
}

type RetrievalConfig struct {
	TopK int `koanf:"top_k" validate:"gte=1,lte=10"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// Default returns the baseline configuration before overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			CORSAllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		},
		Upload: UploadConfig{
			Dir:           "./data/uploads",
			MaxFileSizeMB: 10,
			AllowedTypes:  []string{"pdf", "txt"},
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 200,
		},
		Embedder: EmbedderConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			BatchSize: 16,
			CacheSize: 512,
		},
		Store: StoreConfig{
			Provider:   "filesystem",
			Path:       "./data/vectors.json",
			Collection: "documents",
			Table:      "passages",
			MaxTopK:    10,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   500,
			Temperature: 0.7,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
