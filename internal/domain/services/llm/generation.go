package llm

import (
	"context"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
)

// EmitFunc receives non-terminal generation events. It may block to apply
// backpressure; it returns ctx.Err() once the consumer is gone.
type EmitFunc func(ctx context.Context, ev slide.Event) error

// GenerationResult is the outcome of a successful generation call
type GenerationResult struct {
	Slide   *slide.Slide
	History llm.History
}

// Generator runs one slide generation: compact history, append the prompt,
// drive the turn loop and return the finalized slide with the new history.
//
// A nil result with a nil error means the turn budget ran out without a
// rendered slide. Errors are reserved for transport failures and cancellation.
type Generator interface {
	Generate(ctx context.Context, prompt string, history llm.History, emit EmitFunc) (*GenerationResult, error)
}

// Routine is a generation flow run behind an event stream. It emits
// non-terminal events and returns the terminal one; a returned error is
// reported as the terminal error event.
type Routine func(ctx context.Context, emit EmitFunc) (slide.Event, error)
