package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"slidegraph/internal/domain/models/slide"
)

// Reader is the consumer side of the event stream. It reassembles frames
// across arbitrary read boundaries and skips comments and frames whose
// payload is not a valid event.
type Reader struct {
	r       *bufio.Reader
	skipped int
}

// NewReader creates a frame reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next well-formed event. It returns io.EOF when the
// stream ends; a trailing frame without its blank-line delimiter is still
// delivered.
func (r *Reader) Next() (slide.Event, error) {
	var data []string

	for {
		line, err := r.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return slide.Event{}, err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if len(data) > 0 {
				if ev, ok := r.decode(data); ok {
					return ev, nil
				}
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			// comment (keep-alive)
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}

		if eof {
			if len(data) > 0 {
				if ev, ok := r.decode(data); ok {
					return ev, nil
				}
			}
			return slide.Event{}, io.EOF
		}
	}
}

// Skipped returns how many malformed frames were dropped so far
func (r *Reader) Skipped() int {
	return r.skipped
}

func (r *Reader) decode(data []string) (slide.Event, bool) {
	var ev slide.Event
	if err := json.Unmarshal([]byte(strings.Join(data, "\n")), &ev); err != nil || ev.Type == "" {
		r.skipped++
		return slide.Event{}, false
	}
	return ev, true
}

// ReadAll reads events until the stream ends or a terminal event arrives
func ReadAll(src io.Reader) ([]slide.Event, error) {
	reader := NewReader(src)
	var events []slide.Event
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
		if ev.IsTerminal() {
			return events, nil
		}
	}
}
