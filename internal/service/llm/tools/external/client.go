package external

import (
	"context"
	"fmt"
	"time"
)

// SearchClient defines the interface for external search APIs.
// Implementations include Brave, Tavily and DuckDuckGo.
type SearchClient interface {
	// Search performs a web search and returns results.
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	MaxResults int // Maximum number of results to return
}

// SearchResponse contains search results from external API.
type SearchResponse struct {
	Results   []SearchResult
	Query     string
	Timestamp time.Time
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title       string     // Page title
	URL         string     // Page URL (empty when the provider does not expose it)
	Snippet     string     // Content snippet/description
	PublishedAt *time.Time // Publication date (if available)
	Score       float64    // Relevance score (if available)
}

// StatusError is returned when a search API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

const defaultMaxResults = 5
