package tools

import (
	"context"

	"slidegraph/internal/domain/models/llm"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// ToolExecutor defines the interface for executing a tool.
// Implementations must be thread-safe and respect context cancellation.
type ToolExecutor interface {
	// Execute runs the tool call. Progress events (status, rendered slides) go
	// to emit. The returned string is sent back to the model as the tool
	// result; an error is sent back with is_error set.
	Execute(ctx context.Context, call llm.ToolCall, emit llmSvc.EmitFunc) (string, error)
}

