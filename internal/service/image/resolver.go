package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Cache lifetimes in seconds
const (
	ImageMaxAge       = 86400
	PlaceholderMaxAge = 3600
)

const (
	defaultTimeout   = 60 * time.Second
	maxImageBytes    = 20 << 20
	photoContentType = "image/jpeg"
	genContentType   = "image/png"
)

// Image is an image body ready to serve
type Image struct {
	ContentType string
	Data        []byte
	MaxAge      int
	Placeholder bool
}

// PhotoSource finds a photo URL for a query
type PhotoSource interface {
	PhotoURL(ctx context.Context, query string) (string, error)
}

// Generator creates an image for a prompt and returns its URL
type Generator interface {
	ImageURL(ctx context.Context, prompt, aspect string) (string, error)
}

// Resolver serves slide images: real photos for entities, generated images
// for concepts, and SVG placeholders whenever a source is missing or fails.
// It never returns an error.
type Resolver struct {
	photos     PhotoSource
	generator  Generator
	httpClient *http.Client
	logger     *slog.Logger
}

// NewResolver creates a resolver. photos and generator may be nil.
func NewResolver(photos PhotoSource, generator Generator, httpClient *http.Client, logger *slog.Logger) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Resolver{
		photos:     photos,
		generator:  generator,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewResolverFromKeys wires Unsplash and DALL-E for whichever keys are set
func NewResolverFromKeys(unsplashKey, openaiKey string, logger *slog.Logger) *Resolver {
	httpClient := &http.Client{Timeout: defaultTimeout}
	r := NewResolver(nil, nil, httpClient, logger)
	if unsplashKey != "" {
		r.photos = NewUnsplashClient(unsplashKey, httpClient)
	}
	if openaiKey != "" {
		r.generator = NewDalleClient(openaiKey, "")
	}
	return r
}

// Photo returns a photo matching query, or a labeled placeholder
func (r *Resolver) Photo(ctx context.Context, query string) *Image {
	if r.photos != nil {
		src, err := r.photos.PhotoURL(ctx, query)
		if err == nil && src != "" {
			var img *Image
			if img, err = r.fetch(ctx, src, photoContentType); err == nil {
				return img
			}
		}
		if err != nil {
			r.logger.Warn("photo lookup failed", "query", query, "error", err)
		}
	}
	return PhotoPlaceholder(query)
}

// Generate returns a generated image for prompt, or a placeholder sized
// for aspect
func (r *Resolver) Generate(ctx context.Context, prompt, aspect string) *Image {
	if r.generator != nil {
		src, err := r.generator.ImageURL(ctx, prompt, aspect)
		if err == nil && src != "" {
			var img *Image
			if img, err = r.fetch(ctx, src, genContentType); err == nil {
				return img
			}
		}
		if err != nil {
			r.logger.Warn("image generation failed", "aspect", aspect, "error", err)
		}
	}
	return GeneratedPlaceholder(prompt, aspect)
}

// fetch downloads an image, defaulting its content type
func (r *Resolver) fetch(ctx context.Context, src, fallbackType string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = fallbackType
	}
	return &Image{ContentType: contentType, Data: data, MaxAge: ImageMaxAge}, nil
}
