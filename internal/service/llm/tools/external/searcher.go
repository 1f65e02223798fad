package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"slidegraph/internal/config"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// Fixed texts returned to the model instead of errors
const (
	SearchUnavailable    = "Search unavailable. Proceeding with training data."
	NoResults            = "No results found."
	NoResultsFallback    = "No results found. Proceeding with training data."
	searchFailedTemplate = "Search failed (%d). Using training data instead."
)

// Searcher formats the results of a SearchClient for the model. It never
// fails: every problem is folded into a short message telling the model to
// rely on what it already knows.
type Searcher struct {
	client      SearchClient
	name        string
	emptyResult string
	limiter     *rate.Limiter
	timeout     time.Duration
	logger      *slog.Logger
}

var _ llmSvc.Searcher = (*Searcher)(nil)

// NewSearcher wraps client. emptyResult is returned when the query matched
// nothing. ratePerSecond bounds outbound requests (0 disables the limit).
func NewSearcher(name string, client SearchClient, emptyResult string, ratePerSecond float64, timeout time.Duration, logger *slog.Logger) *Searcher {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Searcher{
		client:      client,
		name:        name,
		emptyResult: emptyResult,
		limiter:     rate.NewLimiter(limit, 1),
		timeout:     timeout,
		logger:      logger,
	}
}

// NewSearcherFromConfig picks Brave if a key is configured, then Tavily,
// then keyless DuckDuckGo.
func NewSearcherFromConfig(cfg *config.Config, logger *slog.Logger) *Searcher {
	switch {
	case cfg.BraveAPIKey != "":
		return NewSearcher("brave", NewBraveClient(cfg.BraveAPIKey, cfg.SearchTimeout), NoResults, cfg.SearchRate, cfg.SearchTimeout, logger)
	case cfg.TavilyAPIKey != "":
		return NewSearcher("tavily", NewTavilyClient(cfg.TavilyAPIKey, cfg.SearchTimeout), NoResults, cfg.SearchRate, cfg.SearchTimeout, logger)
	default:
		return NewSearcher("duckduckgo", NewDuckDuckGoClient(cfg.SearchTimeout), NoResultsFallback, cfg.SearchRate, cfg.SearchTimeout, logger)
	}
}

// Search implements llmSvc.Searcher
func (s *Searcher) Search(ctx context.Context, query string) string {
	if err := s.limiter.Wait(ctx); err != nil {
		return SearchUnavailable
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.Search(ctx, query, SearchOptions{MaxResults: defaultMaxResults})
	if err != nil {
		s.logger.Warn("web search failed", "provider", s.name, "query", query, "error", err)
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return fmt.Sprintf(searchFailedTemplate, statusErr.StatusCode)
		}
		return SearchUnavailable
	}

	s.logger.Debug("web search completed", "provider", s.name, "query", query, "results", len(resp.Results))
	if len(resp.Results) == 0 {
		return s.emptyResult
	}
	return FormatResults(resp.Results)
}

// FormatResults renders results as a numbered list:
//
//	1. Title
//	   https://example.com
//	   Snippet
//
// separated by blank lines. The URL line is omitted when unknown.
func FormatResults(results []SearchResult) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		lines := []string{fmt.Sprintf("%d. %s", i+1, r.Title)}
		if r.URL != "" {
			lines = append(lines, "   "+r.URL)
		}
		if r.Snippet != "" {
			lines = append(lines, "   "+r.Snippet)
		}
		entries = append(entries, strings.Join(lines, "\n"))
	}
	return strings.Join(entries, "\n\n")
}
