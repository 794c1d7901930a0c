package chat

// StreamEventType names the events emitted during a streamed answer.
type StreamEventType string

const (
	// EventStart opens the stream, carrying the conversation ID and sources.
	EventStart StreamEventType = "start"
	// EventToken carries one incremental answer fragment.
	EventToken StreamEventType = "token"
	// EventDone terminates a successful stream.
	EventDone StreamEventType = "done"
	// EventError terminates a failed stream. No further events follow.
	EventError StreamEventType = "error"
)

// StreamEvent is one unit of a streamed answer. Exactly one terminal event
// (done or error) ends every stream.
type StreamEvent struct {
	Type StreamEventType
	Data any
}

// StartPayload accompanies the start event.
type StartPayload struct {
	ConversationID string   `json:"conversation_id"`
	Sources        []Source `json:"sources"`
}

// TokenPayload accompanies each token event.
type TokenPayload struct {
	Token string `json:"token"`
}

// DonePayload accompanies the done event.
type DonePayload struct {
	Model string `json:"model"`
}

// ErrorPayload accompanies the error event.
type ErrorPayload struct {
	Error string `json:"error"`
}
