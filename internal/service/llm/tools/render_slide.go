package tools

import (
	"context"
	"fmt"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
	"slidegraph/internal/service/generation"
)

// RenderSlideTool implements the 'render_slide' tool. The finalized slide is
// emitted as a slide event; the model only sees a fixed acknowledgment.
type RenderSlideTool struct {
	ack string
}

// NewRenderSlideTool creates a RenderSlideTool answering with ack
func NewRenderSlideTool(ack string) *RenderSlideTool {
	return &RenderSlideTool{ack: ack}
}

// Execute implements ToolExecutor.
// Input parameters:
//   - slide (object, required): the slide to render
func (t *RenderSlideTool) Execute(ctx context.Context, call llm.ToolCall, emit llmSvc.EmitFunc) (string, error) {
	s, err := generation.FinalizeInput(call.Input)
	if err != nil {
		return "", fmt.Errorf("invalid render_slide input: %w", err)
	}
	if err := emit(ctx, slide.Final(s)); err != nil {
		return "", err
	}
	return t.ack, nil
}
