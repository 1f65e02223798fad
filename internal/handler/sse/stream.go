package sse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// ErrInternal is the message sent when a routine panics
const ErrInternal = "Internal error during generation"

// Routine is a generation routine wrapped by the stream adapter
type Routine = llmSvc.Routine

// Stream runs routine in its own goroutine and returns its events in
// emission order. The channel carries exactly one terminal event, last, and
// is closed afterwards.
//
// Emit blocks while the buffer is full and fails with ctx.Err() once ctx is
// done. Terminal events emitted by the routine itself are dropped; only the
// returned event terminates the stream.
func Stream(ctx context.Context, cfg *Config, logger *slog.Logger, routine Routine) <-chan slide.Event {
	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultConfig().BufferSize
	}
	events := make(chan slide.Event, size)

	emit := func(emitCtx context.Context, ev slide.Event) error {
		if ev.IsTerminal() {
			logger.Warn("routine emitted a terminal event, dropping", "type", ev.Type)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-emitCtx.Done():
			return emitCtx.Err()
		case events <- ev:
			return nil
		}
	}

	go func() {
		defer close(events)

		terminal := run(ctx, logger, routine, emit)

		// The terminal frame is delivered unless the consumer is gone
		select {
		case events <- terminal:
		case <-ctx.Done():
		}
	}()

	return events
}

// run invokes routine and converts its outcome, including a panic, into a
// terminal event
func run(ctx context.Context, logger *slog.Logger, routine Routine, emit llmSvc.EmitFunc) (terminal slide.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in generation routine",
				"error", r,
				"stack", string(debug.Stack()),
			)
			terminal = slide.Error(ErrInternal)
		}
	}()

	ev, err := routine(ctx, emit)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("generation failed", "error", err)
		}
		return slide.Error(err.Error())
	}
	if !ev.IsTerminal() {
		return slide.Event{Type: slide.EventDone}
	}
	return ev
}

// Respond streams routine to an HTTP client. It writes SSE headers, frames
// every event, keeps the connection alive while the routine is quiet, and
// cancels the routine when the client goes away.
func Respond(w http.ResponseWriter, r *http.Request, cfg *Config, logger *slog.Logger, routine Routine) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writer := NewWriter(w, flusher)

	if cfg.KeepAliveInterval > 0 {
		pingCtx, stopPing := context.WithCancel(ctx)
		exited := keepAlive(pingCtx, cfg.KeepAliveInterval, writer, logger)
		defer func() {
			stopPing()
			<-exited
		}()
	}

	events := Stream(ctx, cfg, logger, routine)
	if err := Drain(events, writer.WriteEvent); err != nil {
		logger.Debug("SSE client gone", "path", r.URL.Path, "error", err)
		cancel()
		// Let the routine observe cancellation and exit
		for range events {
		}
	}
}

// Drain passes every event to write until the channel closes or write fails
func Drain(events <-chan slide.Event, write func(slide.Event) error) error {
	for ev := range events {
		if err := write(ev); err != nil {
			return fmt.Errorf("deliver %s event: %w", ev.Type, err)
		}
	}
	return nil
}
