package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation message.
//
// Content is either plain text (Blocks == nil) or an ordered list of typed
// blocks. On the wire it serializes as {"role": ..., "content": "text"} or
// {"role": ..., "content": [blocks]}.
type Message struct {
	Role   string
	Text   string
	Blocks []ContentBlock
}

// NewUserText creates a plain-text user message
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// NewAssistantBlocks creates an assistant message from content blocks
func NewAssistantBlocks(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Blocks: blocks}
}

// NewToolResults creates the user message answering a turn's tool calls
func NewToolResults(results ...ContentBlock) Message {
	return Message{Role: RoleUser, Blocks: results}
}

// IsBlocks reports whether the content is a block list rather than plain text
func (m Message) IsBlocks() bool {
	return m.Blocks != nil
}

// HasText reports whether the message carries any non-empty text
func (m Message) HasText() bool {
	if !m.IsBlocks() {
		return strings.TrimSpace(m.Text) != ""
	}
	for _, b := range m.Blocks {
		if b.Type == BlockTypeText && strings.TrimSpace(b.Text) != "" {
			return true
		}
	}
	return false
}

// HasToolResult reports whether the message answers at least one tool call
func (m Message) HasToolResult() bool {
	for _, b := range m.Blocks {
		if b.Type == BlockTypeToolResult {
			return true
		}
	}
	return false
}

// IsPrompt reports whether the message is a user-initiated exchange start:
// a user message with text and no tool results.
func (m Message) IsPrompt() bool {
	return m.Role == RoleUser && m.HasText() && !m.HasToolResult()
}

// PlainText joins all text content of the message
func (m Message) PlainText() string {
	if !m.IsBlocks() {
		return m.Text
	}
	var parts []string
	for _, b := range m.Blocks {
		if b.Type == BlockTypeText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool invocation blocks in order
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Blocks {
		if b.Type == BlockTypeToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// ToolResultIDs returns the call ids answered by this message, in order
func (m Message) ToolResultIDs() []string {
	var ids []string
	for _, b := range m.Blocks {
		if b.Type == BlockTypeToolResult {
			ids = append(ids, b.ToolUseID)
		}
	}
	return ids
}

type messageJSON struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON implements json.Marshaler
func (m Message) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if m.IsBlocks() {
		content, err = json.Marshal(m.Blocks)
	} else {
		content, err = json.Marshal(m.Text)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{Role: m.Role, Content: content})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Role != RoleUser && raw.Role != RoleAssistant {
		return fmt.Errorf("unsupported role %q", raw.Role)
	}

	*m = Message{Role: raw.Role}
	content := bytes.TrimSpace(raw.Content)
	if len(content) == 0 || string(content) == "null" {
		return nil
	}
	if content[0] == '"' {
		return json.Unmarshal(content, &m.Text)
	}

	blocks := []ContentBlock{}
	if err := json.Unmarshal(content, &blocks); err != nil {
		return fmt.Errorf("message content: %w", err)
	}
	m.Blocks = blocks
	return nil
}
