// Package stream writes server-sent events. The format is the standard
// "event:" plus "data:" framing with a JSON body, flushed per event so
// clients see progress immediately.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoFlush means the ResponseWriter cannot stream.
var ErrNoFlush = errors.New("response writer does not support flushing")

// Writer emits SSE frames on an HTTP response.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming and returns the writer.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNoFlush
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &Writer{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes it. The data is JSON-encoded.
func (s *Writer) Send(event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, body); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
