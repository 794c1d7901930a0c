package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainAdapter adapts langchaingo models to the LLMClient interface.
type LangChainAdapter struct {
	model llms.Model
	cfg   Config
}

// NewLangChainAdapter creates a new LangChain adapter for the configured provider.
func NewLangChainAdapter(cfg *Config) (*LangChainAdapter, error) {
	if cfg == nil {
		return nil, errors.New("llm config is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("llm model is required")
	}
	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}
	return &LangChainAdapter{model: model, cfg: *cfg}, nil
}

// WrapModel builds an adapter around an existing langchaingo model.
func WrapModel(cfg *Config, model llms.Model) (*LangChainAdapter, error) {
	if cfg == nil {
		return nil, errors.New("llm config is required")
	}
	if model == nil {
		return nil, errors.New("llm model is required")
	}
	return &LangChainAdapter{model: model, cfg: *cfg}, nil
}

func buildModel(cfg *Config) (llms.Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM model: %w", err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("llm provider %q is not supported", cfg.Provider)
	}
}

// Model returns the configured model identifier.
func (a *LangChainAdapter) Model() string {
	return a.cfg.Model
}

// GenerateContent implements LLMClient.
func (a *LangChainAdapter) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	messages := a.convertMessages(req)
	options := a.buildCallOptions(req)
	response, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("langchain GenerateContent failed: %w", err)
	}
	return convertResponse(response)
}

// StreamContent implements LLMClient. Chunks are forwarded to fn as they
// arrive; the assembled response is returned once the model finishes.
func (a *LangChainAdapter) StreamContent(ctx context.Context, req *LLMRequest, fn StreamFunc) (*LLMResponse, error) {
	if fn == nil {
		return nil, errors.New("stream func is required")
	}
	messages := a.convertMessages(req)
	options := a.buildCallOptions(req)
	options = append(options, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		return fn(ctx, chunk)
	}))
	response, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("langchain streaming failed: %w", err)
	}
	return convertResponse(response)
}

// Close implements LLMClient. Langchain models hold no persistent resources.
func (a *LangChainAdapter) Close() error {
	return nil
}

// convertMessages converts the Message format to langchain MessageContent
func (a *LangChainAdapter) convertMessages(req *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(mapMessageRole(msg.Role), msg.Content))
	}
	return messages
}

// mapMessageRole maps a role to the langchain ChatMessageType
func mapMessageRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleUser:
		return llms.ChatMessageTypeHuman
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// buildCallOptions builds langchain call options from the request, falling
// back to the adapter defaults when the request leaves them unset.
func (a *LangChainAdapter) buildCallOptions(req *LLMRequest) []llms.CallOption {
	var options []llms.CallOption
	temperature := req.Options.Temperature
	if temperature <= 0 {
		temperature = a.cfg.Temperature
	}
	if temperature > 0 {
		options = append(options, llms.WithTemperature(temperature))
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.cfg.MaxTokens
	}
	if maxTokens > 0 {
		options = append(options, llms.WithMaxTokens(int(maxTokens)))
	}
	return options
}

// convertResponse converts a langchain response to the internal format
func convertResponse(resp *llms.ContentResponse) (*LLMResponse, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}
	choice := resp.Choices[0]
	return &LLMResponse{
		Content: choice.Content,
		Usage:   usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

// usageFromGenerationInfo extracts token counts when the provider reports
// them. Not every provider populates GenerationInfo.
func usageFromGenerationInfo(info map[string]any) *Usage {
	if len(info) == 0 {
		return nil
	}
	prompt := intFromAny(info["PromptTokens"])
	completion := intFromAny(info["CompletionTokens"])
	total := intFromAny(info["TotalTokens"])
	if prompt == 0 && completion == 0 && total == 0 {
		return nil
	}
	if total == 0 {
		total = prompt + completion
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func intFromAny(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
