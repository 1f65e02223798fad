package llm

import "context"

// Searcher is the web search collaborator used by the web_search tool.
// It never fails: transport and API errors are folded into the returned text.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// SearcherFunc adapts a function to the Searcher interface
type SearcherFunc func(ctx context.Context, query string) string

// Search implements Searcher
func (f SearcherFunc) Search(ctx context.Context, query string) string {
	return f(ctx, query)
}
