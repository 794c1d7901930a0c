package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ragserve/ragserve/engine/core"
	llmadapter "github.com/ragserve/ragserve/engine/llm/adapter"
	"github.com/ragserve/ragserve/engine/retriever"
	"github.com/ragserve/ragserve/pkg/logger"
)

// Retriever supplies the passages an answer is grounded on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retriever.RetrievedPassage, error)
}

// ErrEmptyMessage reports a blank chat message.
var ErrEmptyMessage = errors.New("chat: message must not be empty")

// Service composes grounded answers from retrieved passages.
type Service struct {
	retriever Retriever
	llm       llmadapter.LLMClient
	model     string
}

// NewService wires the answer composition pipeline. model names the LLM for
// response attribution.
func NewService(ret Retriever, llm llmadapter.LLMClient, model string) (*Service, error) {
	if ret == nil {
		return nil, errors.New("chat: retriever is required")
	}
	if llm == nil {
		return nil, errors.New("chat: llm client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("chat: model name is required")
	}
	return &Service{retriever: ret, llm: llm, model: model}, nil
}

// Compose produces a complete grounded answer. When the store holds no
// documents, a canned answer is returned without calling the LLM.
func (s *Service) Compose(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	conversationID := conversationIDFor(req)
	passages, err := s.retriever.Retrieve(ctx, req.Message, req.TopK)
	if err != nil {
		return nil, fmt.Errorf("chat: retrieve context: %w", err)
	}
	if len(passages) == 0 {
		return &Response{
			ConversationID: conversationID,
			Answer:         noDocumentsAnswer,
			Sources:        []Source{},
			ModelUsed:      s.model,
		}, nil
	}
	response, err := s.llm.GenerateContent(ctx, s.buildRequest(req, passages))
	if err != nil {
		return nil, fmt.Errorf("chat: generate answer: %w", err)
	}
	result := &Response{
		ConversationID: conversationID,
		Answer:         response.Content,
		Sources:        formatSources(passages),
		ModelUsed:      s.model,
	}
	if response.Usage != nil {
		tokens := response.Usage.TotalTokens
		result.TokensUsed = &tokens
	}
	logger.FromContext(ctx).Debug("answer composed",
		"conversation_id", conversationID,
		"sources", len(result.Sources),
	)
	return result, nil
}

// ComposeStream produces a grounded answer incrementally through emit.
// Event order is start, zero or more tokens, then exactly one terminal
// event: done on success, error otherwise. An empty store terminates the
// stream with an error event before anything else is emitted.
func (s *Service) ComposeStream(ctx context.Context, req Request, emit func(StreamEvent) error) error {
	if emit == nil {
		return errors.New("chat: emit func is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return emit(StreamEvent{Type: EventError, Data: ErrorPayload{Error: ErrEmptyMessage.Error()}})
	}
	conversationID := conversationIDFor(req)
	passages, err := s.retriever.Retrieve(ctx, req.Message, req.TopK)
	if err != nil {
		return emit(StreamEvent{Type: EventError, Data: ErrorPayload{Error: err.Error()}})
	}
	if len(passages) == 0 {
		return emit(StreamEvent{Type: EventError, Data: ErrorPayload{Error: noDocumentsStreamError}})
	}
	sources := formatSources(passages)
	if err := emit(StreamEvent{Type: EventStart, Data: StartPayload{
		ConversationID: conversationID,
		Sources:        sources,
	}}); err != nil {
		return err
	}
	_, err = s.llm.StreamContent(ctx, s.buildRequest(req, passages), func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		return emit(StreamEvent{Type: EventToken, Data: TokenPayload{Token: string(chunk)}})
	})
	if err != nil {
		return emit(StreamEvent{Type: EventError, Data: ErrorPayload{Error: err.Error()}})
	}
	return emit(StreamEvent{Type: EventDone, Data: DonePayload{Model: s.model}})
}

func (s *Service) buildRequest(req Request, passages []retriever.RetrievedPassage) *llmadapter.LLMRequest {
	return &llmadapter.LLMRequest{
		SystemPrompt: systemPrompt,
		Messages: []llmadapter.Message{
			{Role: llmadapter.RoleUser, Content: BuildPrompt(req.Message, passages)},
		},
		Options: llmadapter.CallOptions{
			Temperature: req.Temperature,
		},
	}
}

func conversationIDFor(req Request) string {
	if strings.TrimSpace(req.ConversationID) != "" {
		return req.ConversationID
	}
	return core.MustNewID().String()
}
