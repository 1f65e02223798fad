package tools

import (
	"context"
	"sync"

	"slidegraph/internal/domain/models/llm"
	llmSvc "slidegraph/internal/domain/services/llm"
)

type registeredTool struct {
	definition llm.ToolDefinition
	executor   ToolExecutor
}

// ToolRegistry manages tool executors and handles tool execution.
// It is thread-safe and can be used concurrently.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
	order []string
}

// NewToolRegistry creates a new tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]registeredTool),
	}
}

// Register adds a tool under the definition's name.
// If a tool with the same name already exists, it will be replaced.
func (r *ToolRegistry) Register(def llm.ToolDefinition, executor ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = registeredTool{definition: def, executor: executor}
}

// Get retrieves a tool executor by name.
// Returns nil if the tool is not registered.
func (r *ToolRegistry) Get(name string) ToolExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name].executor
}

// Definitions returns the declarations of all registered tools, in
// registration order.
func (r *ToolRegistry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Execute runs a single tool call and returns the tool_result block that
// answers it. It never fails: unknown tools and execution errors become
// error results the model can react to.
func (r *ToolRegistry) Execute(ctx context.Context, call llm.ToolCall, emit llmSvc.EmitFunc) llm.ContentBlock {
	executor := r.Get(call.Name)
	if executor == nil {
		return llm.NewToolResultBlock(call.ID, "Unknown tool: "+call.Name, true)
	}

	result, err := executor.Execute(ctx, call, emit)
	if err != nil {
		return llm.NewToolResultBlock(call.ID, err.Error(), true)
	}
	return llm.NewToolResultBlock(call.ID, result, false)
}
