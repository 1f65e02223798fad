package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// Defaults for EngineConfig zero values
const (
	DefaultMaxTurns        = 10
	DefaultMaxTokens       = 16384
	DefaultPartialInterval = 150 * time.Millisecond
)

const interruptedToolResult = "Tool call was interrupted before it completed."

// ToolExecutor runs the tool calls of a model turn. Execute never fails: any
// problem is reported to the model through the returned tool_result block.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, call llm.ToolCall, emit llmSvc.EmitFunc) llm.ContentBlock
}

// SystemPrompter renders the generation system prompt
type SystemPrompter interface {
	SystemPrompt(now time.Time, location string) string
}

// EngineConfig tunes the turn loop
type EngineConfig struct {
	Model           string
	MaxTokens       int
	MaxTurns        int
	PartialInterval time.Duration
	// RenderAck answers a render_slide call left unanswered by a previous
	// generation that ended its turn right after rendering.
	RenderAck string
}

// Engine drives the tool-calling loop that turns a prompt into one slide.
// It implements llmSvc.Generator.
type Engine struct {
	client    llmSvc.ModelClient
	tools     ToolExecutor
	prompts   SystemPrompter
	compactor *Compactor
	cfg       EngineConfig
	logger    *slog.Logger
	now       func() time.Time
}

var _ llmSvc.Generator = (*Engine)(nil)

// NewEngine creates a generation engine
func NewEngine(client llmSvc.ModelClient, tools ToolExecutor, prompts SystemPrompter, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.PartialInterval <= 0 {
		cfg.PartialInterval = DefaultPartialInterval
	}
	return &Engine{
		client:    client,
		tools:     tools,
		prompts:   prompts,
		compactor: NewCompactor(),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate runs one generation. Non-terminal events go to emit; the caller
// owns the terminal event. A nil result with a nil error means the model
// never rendered a slide within the turn budget.
func (e *Engine) Generate(ctx context.Context, prompt string, history llm.History, emit llmSvc.EmitFunc) (*llmSvc.GenerationResult, error) {
	working := e.prepareHistory(history, prompt)

	e.logger.Info("generating slide",
		"model", e.cfg.Model,
		"history_in", len(history),
		"history_sent", len(working),
	)

	if err := emit(ctx, slide.Status("Thinking...", slide.StatusThinking)); err != nil {
		return nil, err
	}

	// Rendered slides are recorded rather than forwarded so that exactly one
	// slide event, the last render, is emitted after the loop.
	var rendered *slide.Slide
	toolEmit := func(ctx context.Context, ev slide.Event) error {
		if ev.Type == slide.EventSlide {
			rendered = ev.Slide
			return nil
		}
		return emit(ctx, ev)
	}

	req := &llmSvc.GenerateRequest{
		Model:     e.cfg.Model,
		System:    e.prompts.SystemPrompt(e.now(), ""),
		Tools:     e.tools.Definitions(),
		MaxTokens: e.cfg.MaxTokens,
	}
	throttle := NewThrottle[string](e.cfg.PartialInterval)

	for turn := 0; turn < e.cfg.MaxTurns; turn++ {
		req.Messages = working
		resp, err := e.streamTurn(ctx, req, throttle, emit)
		if err != nil {
			return nil, err
		}

		e.logger.Debug("model turn complete",
			"turn", turn,
			"stop_reason", resp.StopReason,
			"blocks", len(resp.Content),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
		)

		if len(resp.Content) == 0 {
			break
		}
		working = append(working, llm.NewAssistantBlocks(resp.Content...))

		calls := toolCalls(resp.Content)
		results := make([]llm.ContentBlock, 0, len(calls))
		for _, call := range calls {
			results = append(results, e.tools.Execute(ctx, call, toolEmit))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if resp.StopReason == llmSvc.StopReasonEndTurn || len(calls) == 0 {
			break
		}
		working = append(working, llm.NewToolResults(results...))
	}

	if rendered == nil {
		e.logger.Warn("generation finished without a slide", "turns", e.cfg.MaxTurns)
		return nil, nil
	}

	if err := emit(ctx, slide.Final(rendered)); err != nil {
		return nil, err
	}
	return &llmSvc.GenerationResult{Slide: rendered, History: working}, nil
}

// prepareHistory compacts the history, answers tool calls a previous
// generation left open, and appends the new prompt.
func (e *Engine) prepareHistory(history llm.History, prompt string) llm.History {
	working := e.compactor.Compact(history).Clone()

	if dangling := working.DanglingToolUses(); len(dangling) > 0 {
		results := make([]llm.ContentBlock, 0, len(dangling))
		for _, use := range dangling {
			content := interruptedToolResult
			if use.Name == llm.ToolRenderSlide && e.cfg.RenderAck != "" {
				content = e.cfg.RenderAck
			}
			results = append(results, llm.NewToolResultBlock(use.ID, content, false))
		}
		working = append(working, llm.NewToolResults(results...))
	}

	return append(working, llm.NewUserText(prompt))
}

// toolStream accumulates one streamed tool_use block
type toolStream struct {
	name  string
	input strings.Builder
}

// streamTurn consumes one streamed model response, forwarding text as
// thinking events and render_slide input as throttled slide_partial events.
func (e *Engine) streamTurn(ctx context.Context, req *llmSvc.GenerateRequest, throttle *Throttle[string], emit llmSvc.EmitFunc) (*llmSvc.GenerateResponse, error) {
	// The stream is abandoned (and its request cancelled) if we return early
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := e.client.Stream(streamCtx, req)
	if err != nil {
		return nil, fmt.Errorf("start model stream: %w", err)
	}

	var (
		blocks = make(map[int]*toolStream)
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	emitPartial := func(raw string) error {
		s, ok := ParsePartialSlide(raw)
		if !ok {
			return nil
		}
		return emit(ctx, slide.Partial(s))
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timerC:
			timerC = nil
			if raw, ok := e.fireDue(throttle); ok {
				if err := emitPartial(raw); err != nil {
					return nil, err
				}
			}

		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, errors.New("model stream closed without a response")
			}
			switch {
			case ev.Error != nil:
				return nil, fmt.Errorf("model stream: %w", ev.Error)

			case ev.Response != nil:
				if err := e.flushPartial(ctx, throttle, emitPartial); err != nil {
					return nil, err
				}
				return ev.Response, nil

			case ev.Delta != nil:
				if err := e.handleDelta(ctx, ev.Delta, blocks, throttle, emit, emitPartial); err != nil {
					return nil, err
				}
			}
		}

		if due, ok := throttle.Due(); ok && timerC == nil {
			wait := due.Sub(e.now())
			if wait < 0 {
				wait = 0
			}
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			timerC = timer.C
		}
	}
}

func (e *Engine) handleDelta(
	ctx context.Context,
	d *llmSvc.BlockDelta,
	blocks map[int]*toolStream,
	throttle *Throttle[string],
	emit llmSvc.EmitFunc,
	emitPartial func(string) error,
) error {
	switch d.DeltaType {
	case llmSvc.DeltaTypeText:
		if d.Text == "" {
			return nil
		}
		return emit(ctx, slide.Thinking(d.Text))

	case llmSvc.DeltaTypeToolCallStart:
		blocks[d.Index] = &toolStream{name: d.ToolCallName}
		if d.ToolCallName == llm.ToolRenderSlide {
			return emit(ctx, slide.Status("Building slide...", slide.StatusBuilding))
		}

	case llmSvc.DeltaTypeInputJSON:
		b := blocks[d.Index]
		if b == nil || b.name != llm.ToolRenderSlide || d.InputJSON == "" {
			return nil
		}
		b.input.WriteString(d.InputJSON)
		if raw, ok := throttle.Offer(e.now(), b.input.String()); ok {
			return emitPartial(raw)
		}
	}
	return nil
}

// fireDue emits the pending value once its timer has fired. The timer firing
// means the due time has passed even if the injected clock disagrees.
func (e *Engine) fireDue(throttle *Throttle[string]) (string, bool) {
	due, ok := throttle.Due()
	if !ok {
		return "", false
	}
	now := e.now()
	if now.Before(due) {
		now = due
	}
	return throttle.Fire(now)
}

// flushPartial emits the last pending partial at the end of a stream,
// waiting for its due time so emissions stay spaced.
func (e *Engine) flushPartial(ctx context.Context, throttle *Throttle[string], emitPartial func(string) error) error {
	due, ok := throttle.Due()
	if !ok {
		return nil
	}
	if wait := due.Sub(e.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if raw, ok := e.fireDue(throttle); ok {
		return emitPartial(raw)
	}
	return nil
}

func toolCalls(content []llm.ContentBlock) []llm.ToolCall {
	var calls []llm.ToolCall
	for _, b := range content {
		if b.Type == llm.BlockTypeToolUse {
			calls = append(calls, llm.ToolCall{ID: b.ID, Name: b.Name, Input: b.Input})
		}
	}
	return calls
}
