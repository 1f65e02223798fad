package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"slidegraph/internal/domain/models/slide"
)

// Writer frames generation events as "data: <json>\n\n" and flushes each
// frame. It is safe for concurrent use by the event loop and a keep-alive.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates a frame writer. flusher may be nil for plain writers.
func NewWriter(w io.Writer, flusher http.Flusher) *Writer {
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent writes one event frame
func (s *Writer) WriteEvent(ev slide.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event failed: %w", err)
	}
	s.flush()
	return nil
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes
// Lines starting with : are comments that clients ignore
func (s *Writer) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flush()
	return nil
}

func (s *Writer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
