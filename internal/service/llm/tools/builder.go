package tools

import (
	"slidegraph/internal/config"
	"slidegraph/internal/domain/models/llm"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// ToolRegistryBuilder provides a fluent API for building tool registries.
// Tool declarations (description, input schema) come from the prompt
// configuration so they can be tuned without a rebuild.
type ToolRegistryBuilder struct {
	registry *ToolRegistry
	prompts  *config.Prompts
}

// NewToolRegistryBuilder creates a new builder with a fresh registry.
func NewToolRegistryBuilder(prompts *config.Prompts) *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		registry: NewToolRegistry(),
		prompts:  prompts,
	}
}

// WithRenderSlide registers the render_slide tool
func (b *ToolRegistryBuilder) WithRenderSlide() *ToolRegistryBuilder {
	b.registry.Register(b.definition(llm.ToolRenderSlide), NewRenderSlideTool(b.prompts.RenderAck))
	return b
}

// WithWebSearch registers the web_search tool.
// Only registers if a searcher is provided.
func (b *ToolRegistryBuilder) WithWebSearch(searcher llmSvc.Searcher) *ToolRegistryBuilder {
	if searcher != nil {
		b.registry.Register(b.definition(llm.ToolWebSearch), NewWebSearchTool(searcher))
	}
	return b
}

// Build returns the constructed tool registry.
func (b *ToolRegistryBuilder) Build() *ToolRegistry {
	return b.registry
}

func (b *ToolRegistryBuilder) definition(name string) llm.ToolDefinition {
	if def, ok := b.prompts.Tool(name); ok {
		return def
	}
	return llm.ToolDefinition{
		Name:        name,
		InputSchema: map[string]any{"type": "object"},
	}
}
