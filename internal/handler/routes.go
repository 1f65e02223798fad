package handler

import (
	"net/http"
	"time"

	"slidegraph/internal/httputil"
)

// Handlers bundles the HTTP handlers registered by RegisterRoutes
type Handlers struct {
	Slides *SlideHandler
	Chats  *ChatHandler
	Pregen *PregenHandler
	Images *ImageHandler
}

// RegisterRoutes registers every API route on mux
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)

	mux.HandleFunc("POST /api/generate", h.Slides.Generate)

	// Slides
	mux.HandleFunc("GET /api/slides", h.Slides.ListSlides)
	mux.HandleFunc("POST /api/slides", h.Slides.CreateSlide)
	mux.HandleFunc("GET /api/slides/graph", h.Slides.GetGraph)       // Must come before {id} route
	mux.HandleFunc("GET /api/slides/search", h.Slides.SearchSlides) // Must come before {id} route
	mux.HandleFunc("GET /api/slides/{id}", h.Slides.GetSlide)
	mux.HandleFunc("PATCH /api/slides/{id}", h.Slides.UpdateSlide)
	mux.HandleFunc("POST /api/slides/{id}/branch", h.Slides.Branch)     // SSE
	mux.HandleFunc("POST /api/slides/{id}/continue", h.Slides.Continue) // SSE unless the main child exists

	// Links
	mux.HandleFunc("POST /api/slides/{id}/links", h.Slides.AddLink)
	mux.HandleFunc("DELETE /api/slides/{id}/links", h.Slides.RemoveLink)

	// Speculative generation
	mux.HandleFunc("POST /api/slides/{id}/pregen", h.Pregen.Start)
	mux.HandleFunc("GET /api/slides/{id}/pregen", h.Pregen.Status)
	mux.HandleFunc("DELETE /api/pregen", h.Pregen.Invalidate)

	// Chats
	mux.HandleFunc("POST /api/slides/{id}/chat", h.Chats.SendMessage) // SSE
	mux.HandleFunc("GET /api/slides/{id}/chat/{chatId}", h.Chats.GetMessages)
	mux.HandleFunc("POST /api/slides/{id}/chat/{chatId}/to-slide", h.Chats.ToSlide) // SSE

	// Images
	mux.HandleFunc("GET /api/image", h.Images.Photo)
	mux.HandleFunc("GET /api/gen", h.Images.Generate)
}

// HealthCheck is a simple health check endpoint
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now(),
	})
}
