package handler

import (
	"fmt"
	"net/http"
	"strings"

	"slidegraph/internal/httputil"
	"slidegraph/internal/service/image"
)

// ImageHandler proxies slide images
type ImageHandler struct {
	resolver *image.Resolver
}

// NewImageHandler creates a new image handler
func NewImageHandler(resolver *image.Resolver) *ImageHandler {
	return &ImageHandler{resolver: resolver}
}

// Photo serves a stock photo for a query
// GET /api/image?query=
func (h *ImageHandler) Photo(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		httputil.RespondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}
	writeImage(w, h.resolver.Photo(r.Context(), query))
}

// Generate serves a generated image for a prompt
// GET /api/gen?prompt=&aspect=
func (h *ImageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prompt := strings.TrimSpace(q.Get("prompt"))
	if prompt == "" {
		httputil.RespondError(w, http.StatusBadRequest, "prompt parameter is required")
		return
	}
	writeImage(w, h.resolver.Generate(r.Context(), prompt, q.Get("aspect")))
}

func writeImage(w http.ResponseWriter, img *image.Image) {
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", img.MaxAge))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
