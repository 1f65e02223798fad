package llm

import (
	"encoding/json"
	"strings"
)

// Block type constants
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock is one typed element of a message's content.
//
// Only the fields relevant to Type are populated:
//   - text:        Text
//   - tool_use:    ID, Name, Input (raw JSON object)
//   - tool_result: ToolUseID, Content, IsError
//
// The JSON shape matches the provider wire format so that histories can be
// handed to clients and sent back unchanged.
type ContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// NewTextBlock creates a text block
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockTypeText, Text: text}
}

// NewToolUseBlock creates a tool invocation block
func NewToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return ContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// NewToolResultBlock creates a tool result block answering the call with the given id
func NewToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockTypeToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// UnmarshalJSON accepts tool_result content either as a plain string or as a
// list of text blocks, which is what clients replaying provider payloads send.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	type alias ContentBlock
	var raw struct {
		alias
		Content json.RawMessage `json:"content,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = ContentBlock(raw.alias)
	b.Content = ""

	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		b.Content = s
		return nil
	}

	var parts []ContentBlock
	if err := json.Unmarshal(raw.Content, &parts); err != nil {
		return err
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Type == BlockTypeText {
			texts = append(texts, p.Text)
		}
	}
	b.Content = strings.Join(texts, "\n")
	return nil
}
