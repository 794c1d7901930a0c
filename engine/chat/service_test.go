package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmadapter "github.com/ragserve/ragserve/engine/llm/adapter"
	"github.com/ragserve/ragserve/engine/retriever"
)

type stubRetriever struct {
	passages []retriever.RetrievedPassage
	err      error
}

func (s *stubRetriever) Retrieve(context.Context, string, int) ([]retriever.RetrievedPassage, error) {
	return s.passages, s.err
}

type stubLLM struct {
	content   string
	chunks    []string
	usage     *llmadapter.Usage
	err       error
	streamErr error
	calls     int
	lastReq   *llmadapter.LLMRequest
}

func (s *stubLLM) GenerateContent(_ context.Context, req *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llmadapter.LLMResponse{Content: s.content, Usage: s.usage}, nil
}

func (s *stubLLM) StreamContent(
	ctx context.Context,
	req *llmadapter.LLMRequest,
	fn llmadapter.StreamFunc,
) (*llmadapter.LLMResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	for i, chunk := range s.chunks {
		if s.streamErr != nil && i == len(s.chunks)/2 {
			return nil, s.streamErr
		}
		if err := fn(ctx, []byte(chunk)); err != nil {
			return nil, err
		}
	}
	return &llmadapter.LLMResponse{Content: strings.Join(s.chunks, "")}, nil
}

func (s *stubLLM) Close() error { return nil }

func testPassages() []retriever.RetrievedPassage {
	return []retriever.RetrievedPassage{
		{
			ID:    "doc1_chunk_0",
			Text:  "The capital of France is Paris.",
			Score: 0.93,
			Metadata: map[string]any{
				"chunk_id":    "doc1_chunk_0",
				"document_id": "doc1",
				"filename":    "geography.txt",
			},
		},
		{
			ID:    "doc2_chunk_3",
			Text:  strings.Repeat("x", 250),
			Score: 0.71,
			Metadata: map[string]any{
				"chunk_id":    "doc2_chunk_3",
				"document_id": "doc2",
				"filename":    "filler.txt",
			},
		},
	}
}

func newTestChatService(t *testing.T, ret Retriever, llm llmadapter.LLMClient) *Service {
	t.Helper()
	svc, err := NewService(ret, llm, "gpt-4o-mini")
	require.NoError(t, err)
	return svc
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldReturnCannedAnswerWithoutCallingLLMWhenStoreEmpty", func(t *testing.T) {
		llm := &stubLLM{content: "should not be used"}
		svc := newTestChatService(t, &stubRetriever{}, llm)
		resp, err := svc.Compose(ctx, Request{Message: "anything"})
		require.NoError(t, err)
		assert.Equal(t, noDocumentsAnswer, resp.Answer)
		assert.Empty(t, resp.Sources)
		assert.NotEmpty(t, resp.ConversationID)
		assert.Zero(t, llm.calls)
	})

	t.Run("ShouldGroundAnswerInRetrievedPassages", func(t *testing.T) {
		llm := &stubLLM{content: "Paris is the capital.", usage: &llmadapter.Usage{TotalTokens: 42}}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		resp, err := svc.Compose(ctx, Request{Message: "What is the capital of France?"})
		require.NoError(t, err)
		assert.Equal(t, "Paris is the capital.", resp.Answer)
		assert.Equal(t, "gpt-4o-mini", resp.ModelUsed)
		require.NotNil(t, resp.TokensUsed)
		assert.Equal(t, 42, *resp.TokensUsed)

		require.NotNil(t, llm.lastReq)
		prompt := llm.lastReq.Messages[0].Content
		assert.Contains(t, prompt, "[Document: geography.txt]")
		assert.Contains(t, prompt, "The capital of France is Paris.")
		assert.Contains(t, prompt, "Question: What is the capital of France?")
		assert.Contains(t, llm.lastReq.SystemPrompt, "Only use information from the context")
	})

	t.Run("ShouldCiteSourcesWithBoundedPreviews", func(t *testing.T) {
		llm := &stubLLM{content: "answer"}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		resp, err := svc.Compose(ctx, Request{Message: "question"})
		require.NoError(t, err)
		require.Len(t, resp.Sources, 2)
		assert.Equal(t, "doc1_chunk_0", resp.Sources[0].ChunkID)
		assert.Equal(t, "geography.txt", resp.Sources[0].Filename)
		assert.InDelta(t, 0.93, resp.Sources[0].SimilarityScore, 1e-9)
		assert.Equal(t, "The capital of France is Paris.", resp.Sources[0].Content)
		assert.Len(t, resp.Sources[1].Content, 203)
		assert.True(t, strings.HasSuffix(resp.Sources[1].Content, "..."))
	})

	t.Run("ShouldReuseProvidedConversationID", func(t *testing.T) {
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, &stubLLM{content: "answer"})
		resp, err := svc.Compose(ctx, Request{Message: "question", ConversationID: "conv-123"})
		require.NoError(t, err)
		assert.Equal(t, "conv-123", resp.ConversationID)
	})

	t.Run("ShouldRejectEmptyMessage", func(t *testing.T) {
		svc := newTestChatService(t, &stubRetriever{}, &stubLLM{})
		_, err := svc.Compose(ctx, Request{Message: "   "})
		require.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("ShouldPropagateLLMFailures", func(t *testing.T) {
		sentinel := errors.New("model unavailable")
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, &stubLLM{err: sentinel})
		_, err := svc.Compose(ctx, Request{Message: "question"})
		require.ErrorIs(t, err, sentinel)
	})
}

func collectEvents(t *testing.T, svc *Service, req Request) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	err := svc.ComposeStream(context.Background(), req, func(event StreamEvent) error {
		events = append(events, event)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestComposeStream(t *testing.T) {
	t.Run("ShouldEmitStartTokensThenDone", func(t *testing.T) {
		llm := &stubLLM{chunks: []string{"Par", "is ", "is the capital."}}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		events := collectEvents(t, svc, Request{Message: "capital of France?"})

		require.GreaterOrEqual(t, len(events), 3)
		assert.Equal(t, EventStart, events[0].Type)
		start, ok := events[0].Data.(StartPayload)
		require.True(t, ok)
		assert.NotEmpty(t, start.ConversationID)
		assert.Len(t, start.Sources, 2)

		var answer strings.Builder
		for _, event := range events[1 : len(events)-1] {
			require.Equal(t, EventToken, event.Type)
			token, ok := event.Data.(TokenPayload)
			require.True(t, ok)
			answer.WriteString(token.Token)
		}
		assert.Equal(t, "Paris is the capital.", answer.String())

		last := events[len(events)-1]
		assert.Equal(t, EventDone, last.Type)
		done, ok := last.Data.(DonePayload)
		require.True(t, ok)
		assert.Equal(t, "gpt-4o-mini", done.Model)
	})

	t.Run("ShouldEmitSingleErrorEventWhenStoreEmpty", func(t *testing.T) {
		llm := &stubLLM{chunks: []string{"unused"}}
		svc := newTestChatService(t, &stubRetriever{}, llm)
		events := collectEvents(t, svc, Request{Message: "question"})
		require.Len(t, events, 1)
		assert.Equal(t, EventError, events[0].Type)
		payload, ok := events[0].Data.(ErrorPayload)
		require.True(t, ok)
		assert.Equal(t, noDocumentsStreamError, payload.Error)
		assert.Zero(t, llm.calls)
	})

	t.Run("ShouldTerminateWithErrorWhenStreamFailsMidway", func(t *testing.T) {
		llm := &stubLLM{chunks: []string{"one", "two", "three", "four"}, streamErr: errors.New("connection reset")}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		events := collectEvents(t, svc, Request{Message: "question"})

		require.Greater(t, len(events), 1)
		last := events[len(events)-1]
		assert.Equal(t, EventError, last.Type)
		for _, event := range events[:len(events)-1] {
			assert.NotEqual(t, EventDone, event.Type)
			assert.NotEqual(t, EventError, event.Type)
		}
	})

	t.Run("ShouldStopWhenConsumerRejectsStart", func(t *testing.T) {
		llm := &stubLLM{chunks: []string{"one", "two"}}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		sentinel := errors.New("client disconnected")
		err := svc.ComposeStream(context.Background(), Request{Message: "question"}, func(StreamEvent) error {
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)
		assert.Zero(t, llm.calls)
	})

	t.Run("ShouldTerminateWithErrorWhenConsumerRejectsToken", func(t *testing.T) {
		llm := &stubLLM{chunks: []string{"one", "two"}}
		svc := newTestChatService(t, &stubRetriever{passages: testPassages()}, llm)
		sentinel := errors.New("client disconnected")
		var events []StreamEvent
		err := svc.ComposeStream(context.Background(), Request{Message: "question"}, func(event StreamEvent) error {
			events = append(events, event)
			if event.Type == EventToken {
				return sentinel
			}
			return nil
		})
		require.NoError(t, err)
		require.NotEmpty(t, events)
		assert.Equal(t, EventError, events[len(events)-1].Type)
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("ShouldSeparatePassagesWithDivider", func(t *testing.T) {
		prompt := BuildPrompt("question?", testPassages())
		assert.Contains(t, prompt, "Context from uploaded documents:")
		assert.Contains(t, prompt, "\n\n---\n\n")
		assert.True(t, strings.HasSuffix(prompt, "Answer:"))
	})
}
