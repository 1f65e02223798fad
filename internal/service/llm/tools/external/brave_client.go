package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultBraveBaseURL is the Brave web search endpoint
	DefaultBraveBaseURL = "https://api.search.brave.com/res/v1/web/search"
	// DefaultBraveTimeout is the default HTTP timeout for Brave requests
	DefaultBraveTimeout = 30 * time.Second
)

// BraveClient implements SearchClient for the Brave Search API.
type BraveClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewBraveClient creates a new Brave search client.
func NewBraveClient(apiKey string, timeout time.Duration) *BraveClient {
	if timeout <= 0 {
		timeout = DefaultBraveTimeout
	}
	return &BraveClient{
		apiKey:     apiKey,
		baseURL:    DefaultBraveBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search implements SearchClient interface for Brave.
func (c *BraveClient) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(opts.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON")
	}

	var results []SearchResult
	gjson.GetBytes(body, "web.results").ForEach(func(_, r gjson.Result) bool {
		results = append(results, SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Snippet: r.Get("description").String(),
		})
		return len(results) < opts.MaxResults
	})

	return &SearchResponse{
		Results:   results,
		Query:     query,
		Timestamp: time.Now(),
	}, nil
}
