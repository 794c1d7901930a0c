package embedder

// Provider enumerates supported embedding backends.
type Provider string

const (
	// ProviderOpenAI targets OpenAI and OpenAI-compatible embedding APIs.
	ProviderOpenAI Provider = "openai"
)

// Config captures the settings needed to construct an embedding adapter.
type Config struct {
	ID            string
	Provider      Provider
	Model         string
	APIKey        string
	BaseURL       string
	Dimension     int
	BatchSize     int
	StripNewLines bool
}
