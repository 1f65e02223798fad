package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// WebSearchTool implements the 'web_search' tool for searching the web via external APIs.
type WebSearchTool struct {
	searcher llmSvc.Searcher
}

// NewWebSearchTool creates a new WebSearchTool instance.
func NewWebSearchTool(searcher llmSvc.Searcher) *WebSearchTool {
	return &WebSearchTool{searcher: searcher}
}

// Execute implements ToolExecutor interface.
// Input parameters:
//   - query (string, required): Search query
//
// Returns the ranked results as plain text. Search problems are reported in
// the text itself so the model can fall back to its own knowledge.
func (t *WebSearchTool) Execute(ctx context.Context, call llm.ToolCall, emit llmSvc.EmitFunc) (string, error) {
	var input llm.WebSearchInput
	if err := json.Unmarshal(call.Input, &input); err != nil {
		return "", fmt.Errorf("%w: web_search input: %v", domain.ErrValidation, err)
	}
	input.Query = strings.TrimSpace(input.Query)
	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Query, validation.Required),
	); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := emit(ctx, slide.Status("Searching: "+input.Query, slide.StatusSearching)); err != nil {
		return "", err
	}
	return t.searcher.Search(ctx, input.Query), nil
}
