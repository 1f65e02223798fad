package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultDuckDuckGoBaseURL is the keyless HTML search endpoint
	DefaultDuckDuckGoBaseURL = "https://html.duckduckgo.com/html/"

	duckDuckGoUserAgent = "Mozilla/5.0 (compatible; SlideGraph/1.0)"
	maxHTMLBody         = 1 << 20
)

// DuckDuckGoClient implements SearchClient by scraping DuckDuckGo's HTML
// results page. It needs no API key and is the fallback provider.
type DuckDuckGoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDuckDuckGoClient creates a new DuckDuckGo search client.
func NewDuckDuckGoClient(timeout time.Duration) *DuckDuckGoClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DuckDuckGoClient{
		baseURL:    DefaultDuckDuckGoBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search implements SearchClient interface for DuckDuckGo.
func (c *DuckDuckGoClient) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", duckDuckGoUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	results, err := parseDuckDuckGoResults(string(body), opts.MaxResults)
	if err != nil {
		return nil, err
	}
	return &SearchResponse{
		Results:   results,
		Query:     query,
		Timestamp: time.Now(),
	}, nil
}

// parseDuckDuckGoResults pairs each result__a link with the result__snippet
// that follows it. Results missing a title or snippet are skipped.
func parseDuckDuckGoResults(page string, maxResults int) ([]SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var (
		results []SearchResult
		title   string
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case hasClass(class, "result__a"):
				title = textContent(n)
				return
			case hasClass(class, "result__snippet"):
				snippet := textContent(n)
				if title != "" && snippet != "" {
					results = append(results, SearchResult{Title: title, Snippet: snippet})
				}
				title = ""
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
