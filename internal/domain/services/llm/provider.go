package llm

import (
	"context"

	"slidegraph/internal/domain/models/llm"
)

// Stop reasons reported by providers
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonToolUse   = "tool_use"
	StopReasonMaxTokens = "max_tokens"
)

// Delta types carried by StreamEvent.Delta
const (
	DeltaTypeText          = "text_delta"       // Incremental assistant text
	DeltaTypeToolCallStart = "tool_call_start"  // Tool call initiated (id, name)
	DeltaTypeInputJSON     = "input_json_delta" // Incremental tool input JSON
)

// ModelClient is the chat-completion API used by the generation engine and
// the chat service. Implementations must honor ctx cancellation by aborting
// the in-flight request.
type ModelClient interface {
	// Stream starts a streaming request. The returned channel is closed after
	// either a final event carrying Response or an event carrying Error.
	Stream(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Complete performs a non-streaming request
	Complete(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest contains the parameters for a model request
type GenerateRequest struct {
	Model     string
	System    string
	Messages  llm.History
	Tools     []llm.ToolDefinition
	MaxTokens int
}

// GenerateResponse is a completed assistant message
type GenerateResponse struct {
	Content      []llm.ContentBlock
	Model        string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Text joins the text blocks of the response
func (r *GenerateResponse) Text() string {
	return llm.NewAssistantBlocks(r.Content...).PlainText()
}

// BlockDelta is an incremental update to one content block of the message
// being streamed. Index identifies the block within the message.
type BlockDelta struct {
	Index     int
	DeltaType string

	Text         string // text_delta
	ToolCallID   string // tool_call_start
	ToolCallName string // tool_call_start
	InputJSON    string // input_json_delta
}

// StreamEvent is one item of a model stream. Exactly one field is set.
type StreamEvent struct {
	Delta    *BlockDelta
	Response *GenerateResponse
	Error    error
}
