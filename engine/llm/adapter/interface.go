package llmadapter

import (
	"context"
)

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMRequest represents a request to the LLM, independent of provider
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Options      CallOptions
}

// Message represents a conversation message
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CallOptions represents options for the LLM call
type CallOptions struct {
	Temperature float64
	MaxTokens   int32
}

// LLMResponse represents the response from the LLM
type LLMResponse struct {
	Content string
	Usage   *Usage
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamFunc receives incremental content chunks during streaming generation.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, chunk []byte) error

// LLMClient is the main interface for LLM interactions
type LLMClient interface {
	// GenerateContent sends a request to the LLM and returns a response
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	// StreamContent sends a request and delivers the answer incrementally
	// through fn, returning the full response once generation completes.
	StreamContent(ctx context.Context, req *LLMRequest, fn StreamFunc) (*LLMResponse, error)
	// Close cleans up any resources held by the client
	Close() error
}

// Config captures provider settings needed to construct an LLM client.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int32
}
