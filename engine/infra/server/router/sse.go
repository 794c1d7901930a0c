package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SSEStream writes Server-Sent Events to an HTTP response. Writes are
// serialized and flushed per event so proxies deliver tokens promptly.
type SSEStream struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

// StartSSE prepares the response for Server-Sent Events. Returns nil when
// the writer does not support flushing.
func StartSSE(w http.ResponseWriter) *SSEStream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEStream{writer: w, flusher: flusher}
}

// WriteEvent emits one named event with a raw data payload.
func (s *SSEStream) WriteEvent(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("sse: write event %q: %w", event, err)
	}
	s.flusher.Flush()
	return nil
}

// WriteJSONEvent marshals payload and emits it as a named event.
func (s *SSEStream) WriteJSONEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sse: marshal event %q: %w", event, err)
	}
	return s.WriteEvent(event, data)
}
