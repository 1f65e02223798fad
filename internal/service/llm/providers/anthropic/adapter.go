package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"slidegraph/internal/domain/models/llm"
	domainllm "slidegraph/internal/domain/services/llm"
)

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
func convertToAnthropicMessages(messages llm.History) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		if !msg.IsBlocks() {
			blocks = []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text)}
		} else {
			blocks = make([]anthropic.ContentBlockParamUnion, 0, len(msg.Blocks))
			for _, block := range msg.Blocks {
				switch block.Type {
				case llm.BlockTypeText:
					blocks = append(blocks, anthropic.NewTextBlock(block.Text))
				case llm.BlockTypeToolUse:
					input := block.Input
					if len(input) == 0 {
						input = json.RawMessage(`{}`)
					}
					blocks = append(blocks, anthropic.NewToolUseBlock(block.ID, input, block.Name))
				case llm.BlockTypeToolResult:
					blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
				default:
					return nil, fmt.Errorf("message %d: unsupported block type '%s'", i, block.Type)
				}
			}
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case llm.RoleUser:
			message = anthropic.NewUserMessage(blocks...)
		case llm.RoleAssistant:
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

// convertToAnthropicTools declares the tools to the model
func convertToAnthropicTools(defs []llm.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tool := &anthropic.ToolParam{
			Name: def.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.Properties(),
				Required:   def.Required(),
			},
		}
		if def.Description != "" {
			tool.Description = anthropic.String(def.Description)
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: tool})
	}
	return tools
}

// convertFromAnthropicResponse converts an Anthropic response to domain format.
// Content types the generator does not use (thinking, server tools) are dropped.
func convertFromAnthropicResponse(msg *anthropic.Message) *domainllm.GenerateResponse {
	blocks := make([]llm.ContentBlock, 0, len(msg.Content))

	for _, content := range msg.Content {
		switch content.Type {
		case "text":
			blocks = append(blocks, llm.NewTextBlock(content.Text))
		case "tool_use":
			blocks = append(blocks, llm.NewToolUseBlock(content.ID, content.Name, content.Input))
		}
	}

	return &domainllm.GenerateResponse{
		Content:      blocks,
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}
}
