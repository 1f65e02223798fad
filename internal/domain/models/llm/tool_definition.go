package llm

import "encoding/json"

// Tool names understood by the slide generator
const (
	ToolRenderSlide = "render_slide"
	ToolWebSearch   = "web_search"
)

// ToolDefinition declares a tool to the model.
// InputSchema is a JSON Schema object ({"type": "object", "properties": ..., "required": [...]}).
type ToolDefinition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"input_schema" yaml:"input_schema"`
}

// Properties returns the schema's "properties" member, or nil
func (t ToolDefinition) Properties() map[string]any {
	props, _ := t.InputSchema["properties"].(map[string]any)
	return props
}

// Required returns the schema's "required" member as strings
func (t ToolDefinition) Required() []string {
	var out []string
	switch req := t.InputSchema["required"].(type) {
	case []string:
		out = append(out, req...)
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// ToolCall is a completed tool invocation requested by the model
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// WebSearchInput is the typed input of the web_search tool
type WebSearchInput struct {
	Query string `json:"query"`
}
