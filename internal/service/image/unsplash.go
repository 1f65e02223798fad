package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// DefaultUnsplashBaseURL is the Unsplash API root
const DefaultUnsplashBaseURL = "https://api.unsplash.com"

// UnsplashClient finds photos through the Unsplash search API
type UnsplashClient struct {
	accessKey  string
	baseURL    string
	httpClient *http.Client
}

// NewUnsplashClient creates a new Unsplash client
func NewUnsplashClient(accessKey string, httpClient *http.Client) *UnsplashClient {
	return &UnsplashClient{
		accessKey:  accessKey,
		baseURL:    DefaultUnsplashBaseURL,
		httpClient: httpClient,
	}
}

// PhotoURL returns the small rendition of the best squarish match for
// query, or "" when nothing matched
func (c *UnsplashClient) PhotoURL(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", "1")
	params.Set("orientation", "squarish")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unsplash returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("failed to parse response: invalid JSON")
	}

	return gjson.GetBytes(body, "results.0.urls.small").String(), nil
}
