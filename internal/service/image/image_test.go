package image

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPhotoPlaceholder(t *testing.T) {
	img := PhotoPlaceholder(`Cats & "Dogs" <3`)
	svg := string(img.Data)

	assert.Equal(t, "image/svg+xml", img.ContentType)
	assert.True(t, img.Placeholder)
	assert.Equal(t, PlaceholderMaxAge, img.MaxAge)
	assert.Contains(t, svg, `width="400" height="300"`)
	assert.Contains(t, svg, "Cats &amp; &quot;Dogs&quot; &lt;3")

	long := PhotoPlaceholder(strings.Repeat("é", 100))
	assert.Contains(t, string(long.Data), ">"+strings.Repeat("é", PhotoLabelLimit)+"<")
}

func TestGeneratedPlaceholder(t *testing.T) {
	tests := []struct {
		aspect string
		width  string
	}{
		{"1:1", `width="400" height="400"`},
		{"3:4", `width="300" height="400"`},
		{"4:3", `width="400" height="300"`},
		{"9:16", `width="270" height="480"`},
		{"16:9", `width="480" height="270"`},
		{"", `width="400" height="400"`},
		{"2:1", `width="400" height="400"`},
	}
	for _, tt := range tests {
		t.Run(tt.aspect, func(t *testing.T) {
			svg := string(GeneratedPlaceholder("a sunrise", tt.aspect).Data)
			assert.Contains(t, svg, tt.width)
			assert.Contains(t, svg, ">a sunrise</text>")
		})
	}

	svg := string(GeneratedPlaceholder(strings.Repeat("x", 200), "16:9").Data)
	assert.Contains(t, svg, ">"+strings.Repeat("x", GeneratedLabelLimit)+"<")
	assert.Contains(t, svg, `<rect x="220" y="111"`, "icon is centered")
}

func TestDalleSize(t *testing.T) {
	assert.Equal(t, "1024x1024", DalleSize("1:1"))
	assert.Equal(t, "1024x1792", DalleSize("3:4"))
	assert.Equal(t, "1024x1792", DalleSize("9:16"))
	assert.Equal(t, "1792x1024", DalleSize("4:3"))
	assert.Equal(t, "1792x1024", DalleSize("16:9"))
	assert.Equal(t, "1024x1024", DalleSize("weird"))
}

func TestResolver_PhotoFromUnsplash(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/photos":
			assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
			assert.Equal(t, "golden gate", r.URL.Query().Get("query"))
			assert.Equal(t, "squarish", r.URL.Query().Get("orientation"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"results":[{"urls":{"small":"`+srv.URL+`/photo.jpg"}}]}`)
		case "/photo.jpg":
			w.Header().Set("Content-Type", "image/webp")
			_, _ = w.Write([]byte("PHOTO"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	unsplash := NewUnsplashClient("key", srv.Client())
	unsplash.baseURL = srv.URL
	r := NewResolver(unsplash, nil, srv.Client(), discardLogger())

	img := r.Photo(context.Background(), "golden gate")
	assert.False(t, img.Placeholder)
	assert.Equal(t, "image/webp", img.ContentType)
	assert.Equal(t, []byte("PHOTO"), img.Data)
	assert.Equal(t, ImageMaxAge, img.MaxAge)
}

func TestResolver_PhotoFallsBackToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "nothing":
			_, _ = io.WriteString(w, `{"results":[]}`)
		default:
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	unsplash := NewUnsplashClient("key", srv.Client())
	unsplash.baseURL = srv.URL
	r := NewResolver(unsplash, nil, srv.Client(), discardLogger())

	assert.True(t, r.Photo(context.Background(), "nothing").Placeholder)
	assert.True(t, r.Photo(context.Background(), "busy").Placeholder)
	assert.True(t, NewResolver(nil, nil, nil, discardLogger()).Photo(context.Background(), "x").Placeholder)
}

func TestResolver_GenerateWithDalle(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/images/generations":
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "dall-e-3", gjson.GetBytes(body, "model").String())
			assert.Equal(t, "1792x1024", gjson.GetBytes(body, "size").String())
			assert.Equal(t, "standard", gjson.GetBytes(body, "quality").String())
			assert.Equal(t, "a sunrise", gjson.GetBytes(body, "prompt").String())
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"created":1,"data":[{"url":"`+srv.URL+`/img.png"}]}`)
		case "/img.png":
			_, _ = w.Write([]byte("PNG"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewResolver(nil, NewDalleClient("sk-test", srv.URL+"/v1"), srv.Client(), discardLogger())
	img := r.Generate(context.Background(), "a sunrise", "16:9")

	require.False(t, img.Placeholder)
	assert.Equal(t, []byte("PNG"), img.Data)
	assert.NotEmpty(t, img.ContentType)
}

func TestResolver_GenerateFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"content policy","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	r := NewResolver(nil, NewDalleClient("sk-test", srv.URL+"/v1"), srv.Client(), discardLogger())
	img := r.Generate(context.Background(), "a sunrise", "9:16")

	assert.True(t, img.Placeholder)
	assert.Contains(t, string(img.Data), `width="270" height="480"`)
}
