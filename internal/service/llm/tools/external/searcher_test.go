package external

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const braveBody = `{"web":{"results":[
	{"title":"Photosynthesis - Wikipedia","url":"https://en.wikipedia.org/wiki/Photosynthesis","description":"Process used by plants."},
	{"title":"Light reactions","url":"https://example.org/light","description":"Happen in the thylakoid."}
]}}`

func TestBraveSearcher_FormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "photosynthesis", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(braveBody))
	}))
	defer srv.Close()

	client := NewBraveClient("brave-key", time.Second)
	client.baseURL = srv.URL
	s := NewSearcher("brave", client, NoResults, 0, time.Second, discardLogger())

	got := s.Search(context.Background(), "photosynthesis")
	want := "1. Photosynthesis - Wikipedia\n   https://en.wikipedia.org/wiki/Photosynthesis\n   Process used by plants." +
		"\n\n" +
		"2. Light reactions\n   https://example.org/light\n   Happen in the thylakoid."
	assert.Equal(t, want, got)
}

func TestBraveSearcher_StatusAndEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, "Search failed (429). Using training data instead."},
		{"no results", http.StatusOK, `{"web":{"results":[]}}`, NoResults},
		{"no web section", http.StatusOK, `{}`, NoResults},
		{"invalid json", http.StatusOK, `<html>`, SearchUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewBraveClient("k", time.Second)
			client.baseURL = srv.URL
			s := NewSearcher("brave", client, NoResults, 0, time.Second, discardLogger())
			assert.Equal(t, tt.want, s.Search(context.Background(), "q"))
		})
	}
}

func TestTavilyClient_ParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"results":[{"title":"T","url":"https://t.example","content":"C","score":0.9,"published_date":"2024-05-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	client := NewTavilyClient("k", time.Second)
	client.baseURL = srv.URL

	resp, err := client.Search(context.Background(), "q", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	r := resp.Results[0]
	assert.Equal(t, "T", r.Title)
	assert.Equal(t, "C", r.Snippet)
	assert.InDelta(t, 0.9, r.Score, 1e-9)
	require.NotNil(t, r.PublishedAt)
	assert.Equal(t, 2024, r.PublishedAt.Year())
}

const duckDuckGoPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example">First <b>result</b></a>
  <a class="result__snippet" href="#">Snippet   one</a>
</div>
<div class="result results_links">
  <a class="result__a" href="#">No snippet here</a>
</div>
<div class="result results_links">
  <a class="result__a" href="#">Second</a>
  <a class="result__snippet" href="#">Snippet two</a>
</div>
</body></html>`

func TestParseDuckDuckGoResults(t *testing.T) {
	results, err := parseDuckDuckGoResults(duckDuckGoPage, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "First result", Snippet: "Snippet one"}, results[0])
	assert.Equal(t, SearchResult{Title: "Second", Snippet: "Snippet two"}, results[1], "a title without a snippet is skipped")

	limited, err := parseDuckDuckGoResults(duckDuckGoPage, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDuckDuckGoSearcher(t *testing.T) {
	t.Run("results without urls", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<a class="result__a">Title</a><a class="result__snippet">Snip</a>`))
		}))
		defer srv.Close()

		client := NewDuckDuckGoClient(time.Second)
		client.baseURL = srv.URL
		s := NewSearcher("duckduckgo", client, NoResultsFallback, 0, time.Second, discardLogger())
		assert.Equal(t, "1. Title\n   Snip", s.Search(context.Background(), "q"))
	})

	t.Run("empty page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html></html>`))
		}))
		defer srv.Close()

		client := NewDuckDuckGoClient(time.Second)
		client.baseURL = srv.URL
		s := NewSearcher("duckduckgo", client, NoResultsFallback, 0, time.Second, discardLogger())
		assert.Equal(t, NoResultsFallback, s.Search(context.Background(), "q"))
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewDuckDuckGoClient(time.Second)
		client.baseURL = srv.URL
		s := NewSearcher("duckduckgo", client, NoResultsFallback, 0, time.Second, discardLogger())
		assert.Equal(t, SearchUnavailable, s.Search(context.Background(), "q"))
	})
}

type failingClient struct{ err error }

func (c failingClient) Search(context.Context, string, SearchOptions) (*SearchResponse, error) {
	return nil, c.err
}

func TestSearcher_TransportFailure(t *testing.T) {
	s := NewSearcher("x", failingClient{err: errors.New("dial tcp: refused")}, NoResults, 0, time.Second, discardLogger())
	assert.Equal(t, SearchUnavailable, s.Search(context.Background(), "q"))
}

func TestSearcher_CancelledWhileRateLimited(t *testing.T) {
	s := NewSearcher("x", failingClient{}, NoResults, 0.001, time.Second, discardLogger())
	// Consume the single burst token
	_ = s.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, SearchUnavailable, s.Search(ctx, "q"))
}
