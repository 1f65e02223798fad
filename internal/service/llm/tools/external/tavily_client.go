package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTavilyBaseURL is the default Tavily API endpoint
	DefaultTavilyBaseURL = "https://api.tavily.com/search"
	// DefaultTavilyTimeout is the default HTTP timeout for Tavily requests
	DefaultTavilyTimeout = 30 * time.Second
)

// TavilyClient implements SearchClient for Tavily AI.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavilyClient creates a new Tavily search client.
func NewTavilyClient(apiKey string, timeout time.Duration) *TavilyClient {
	if timeout <= 0 {
		timeout = DefaultTavilyTimeout
	}
	return &TavilyClient{
		apiKey:     apiKey,
		baseURL:    DefaultTavilyBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search implements SearchClient interface for Tavily.
func (c *TavilyClient) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxResults > 20 {
		opts.MaxResults = 20 // Tavily max is typically 20
	}

	// Tavily expects the API key in the body, not in headers
	payload, err := json.Marshal(map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": opts.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

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
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		result := SearchResult{
			Title:   r.Get("title").String(),
			URL:     r.Get("url").String(),
			Snippet: r.Get("content").String(),
			Score:   r.Get("score").Float(),
		}
		if published := r.Get("published_date").String(); published != "" {
			if t, err := time.Parse(time.RFC3339, published); err == nil {
				result.PublishedAt = &t
			}
		}
		results = append(results, result)
		return len(results) < opts.MaxResults
	})

	return &SearchResponse{
		Results:   results,
		Query:     query,
		Timestamp: time.Now(),
	}, nil
}
