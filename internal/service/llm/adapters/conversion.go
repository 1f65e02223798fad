package adapters

import (
	"encoding/json"
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"

	"slidegraph/internal/domain/models/llm"
	domainllm "slidegraph/internal/domain/services/llm"
)

// ConvertToLibraryRequest converts a backend GenerateRequest to the library format
func ConvertToLibraryRequest(req *domainllm.GenerateRequest) (*llmprovider.GenerateRequest, error) {
	messages, err := convertToLibraryMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	tools, err := convertToLibraryTools(req.Tools)
	if err != nil {
		return nil, err
	}

	params := &llmprovider.RequestParams{Tools: tools}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		params.MaxTokens = &maxTokens
	}
	if req.System != "" {
		system := req.System
		params.System = &system
	}

	return &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    req.Model,
		Params:   params,
	}, nil
}

func convertToLibraryMessages(history llm.History) ([]llmprovider.Message, error) {
	messages := make([]llmprovider.Message, len(history))
	for i, msg := range history {
		if !msg.IsBlocks() {
			text := msg.Text
			messages[i] = llmprovider.Message{
				Role:   msg.Role,
				Blocks: []*llmprovider.Block{{BlockType: llmprovider.BlockTypeText, TextContent: &text}},
			}
			continue
		}

		blocks := make([]*llmprovider.Block, 0, len(msg.Blocks))
		for j, cb := range msg.Blocks {
			block, err := convertToLibraryBlock(cb, j)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			blocks = append(blocks, block)
		}
		messages[i] = llmprovider.Message{Role: msg.Role, Blocks: blocks}
	}
	return messages, nil
}

func convertToLibraryBlock(cb llm.ContentBlock, sequence int) (*llmprovider.Block, error) {
	switch cb.Type {
	case llm.BlockTypeText:
		text := cb.Text
		return &llmprovider.Block{BlockType: llmprovider.BlockTypeText, Sequence: sequence, TextContent: &text}, nil

	case llm.BlockTypeToolUse:
		input := map[string]interface{}{}
		if len(cb.Input) > 0 {
			if err := json.Unmarshal(cb.Input, &input); err != nil {
				return nil, fmt.Errorf("block %d: tool_use %s input: %w", sequence, cb.ID, err)
			}
		}
		return &llmprovider.Block{
			BlockType: llmprovider.BlockTypeToolUse,
			Sequence:  sequence,
			Content: map[string]interface{}{
				"tool_use_id": cb.ID,
				"tool_name":   cb.Name,
				"input":       input,
			},
		}, nil

	case llm.BlockTypeToolResult:
		content := cb.Content
		return &llmprovider.Block{
			BlockType:   llmprovider.BlockTypeToolResult,
			Sequence:    sequence,
			TextContent: &content,
			Content: map[string]interface{}{
				"tool_use_id": cb.ToolUseID,
				"is_error":    cb.IsError,
			},
		}, nil

	default:
		return nil, fmt.Errorf("block %d: unsupported block type '%s'", sequence, cb.Type)
	}
}

// convertToLibraryTools declares backend-executed function tools
func convertToLibraryTools(defs []llm.ToolDefinition) ([]llmprovider.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]llmprovider.Tool, 0, len(defs))
	for _, def := range defs {
		schema := def.InputSchema
		if schema == nil {
			schema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		tool := llmprovider.Tool{
			Type: "function",
			Function: llmprovider.FunctionDetails{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  schema,
			},
			ExecutionSide: llmprovider.ExecutionSideServer,
		}
		if err := tool.Validate(); err != nil {
			return nil, fmt.Errorf("tool %s: %w", def.Name, err)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// convertFromLibraryBlocks keeps the block types the generator uses.
// Thinking and provider-side search blocks are dropped.
func convertFromLibraryBlocks(blocks []*llmprovider.Block) ([]llm.ContentBlock, error) {
	content := make([]llm.ContentBlock, 0, len(blocks))
	for _, block := range blocks {
		switch block.BlockType {
		case llmprovider.BlockTypeText:
			if block.TextContent != nil {
				content = append(content, llm.NewTextBlock(*block.TextContent))
			}
		case llmprovider.BlockTypeToolUse:
			id, _ := block.GetToolUseID()
			name, _ := block.GetToolName()
			input, err := json.Marshal(block.Content["input"])
			if err != nil {
				return nil, fmt.Errorf("tool_use %s input: %w", id, err)
			}
			if string(input) == "null" {
				input = nil
			}
			content = append(content, llm.NewToolUseBlock(id, name, input))
		}
	}
	return content, nil
}

// convertFromLibraryResponse converts a library GenerateResponse to backend format
func convertFromLibraryResponse(resp *llmprovider.GenerateResponse) (*domainllm.GenerateResponse, error) {
	content, err := convertFromLibraryBlocks(resp.Blocks)
	if err != nil {
		return nil, err
	}
	return &domainllm.GenerateResponse{
		Content:      content,
		Model:        resp.Model,
		StopReason:   resp.StopReason,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

// convertFromLibraryDelta maps a library delta onto the deltas the engine
// consumes, or nil when it carries nothing the engine uses. blockTypes
// records each block's type from its start delta so thinking text can be
// told apart from answer text.
func convertFromLibraryDelta(delta *llmprovider.BlockDelta, blockTypes map[int]string) *domainllm.BlockDelta {
	if delta.BlockType != nil {
		blockTypes[delta.BlockIndex] = *delta.BlockType
	}

	switch delta.DeltaType {
	case llmprovider.DeltaTypeText:
		if delta.TextDelta == nil || *delta.TextDelta == "" {
			return nil
		}
		if t, ok := blockTypes[delta.BlockIndex]; ok && t != llmprovider.BlockTypeText {
			return nil
		}
		return &domainllm.BlockDelta{
			Index:     delta.BlockIndex,
			DeltaType: domainllm.DeltaTypeText,
			Text:      *delta.TextDelta,
		}

	case llmprovider.DeltaTypeToolCallStart:
		out := &domainllm.BlockDelta{Index: delta.BlockIndex, DeltaType: domainllm.DeltaTypeToolCallStart}
		if delta.ToolCallID != nil {
			out.ToolCallID = *delta.ToolCallID
		}
		if delta.ToolCallName != nil {
			out.ToolCallName = *delta.ToolCallName
		}
		return out

	case llmprovider.DeltaTypeJSON:
		if delta.JSONDelta == nil {
			return nil
		}
		return &domainllm.BlockDelta{
			Index:     delta.BlockIndex,
			DeltaType: domainllm.DeltaTypeInputJSON,
			InputJSON: *delta.JSONDelta,
		}
	}
	return nil
}
