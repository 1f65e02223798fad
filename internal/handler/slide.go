package handler

import (
	"context"
	"log/slog"
	"net/http"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/services"
	llmSvc "slidegraph/internal/domain/services/llm"
	"slidegraph/internal/handler/sse"
	"slidegraph/internal/httputil"
	"slidegraph/internal/service/pregen"
)

// GenerationFlow builds the routines behind the streaming endpoints.
// Implemented by *graph.Flow.
type GenerationFlow interface {
	Generate(prompt string, history llm.History) (llmSvc.Routine, error)
	CreateRoot(prompt string) (llmSvc.Routine, error)
	Branch(ctx context.Context, nodeID, prompt string) (llmSvc.Routine, error)
	Continue(ctx context.Context, nodeID string) (existing string, routine llmSvc.Routine, err error)
	ChatToSlide(ctx context.Context, nodeID, chatID string) (llmSvc.Routine, error)
	Chat(ctx context.Context, nodeID string, req *services.ChatRequest) (llmSvc.Routine, error)
	Speculate(ctx context.Context, nodeID string) ([]pregen.EntryStatus, error)
	PregenStatus(nodeID string) []pregen.EntryStatus
	Invalidate()
}

// SlideHandler handles slide graph requests
type SlideHandler struct {
	slides    services.SlideService
	links     services.LinkService
	flow      GenerationFlow
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewSlideHandler creates a new slide handler
func NewSlideHandler(
	slides services.SlideService,
	links services.LinkService,
	flow GenerationFlow,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *SlideHandler {
	return &SlideHandler{
		slides:    slides,
		links:     links,
		flow:      flow,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

type generateRequest struct {
	Prompt              string      `json:"prompt"`
	ConversationHistory llm.History `json:"conversationHistory"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type updateSlideRequest struct {
	Title       *string                 `json:"title"`
	MainChildID httputil.Optional[string] `json:"mainChildId"`
}

type removeLinkRequest struct {
	LinkID string `json:"linkId"`
}

// Generate runs a stateless generation
// POST /api/generate
func (h *SlideHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	routine, err := h.flow.Generate(req.Prompt, req.ConversationHistory)
	if err != nil {
		handleError(w, err)
		return
	}
	h.stream(w, r, routine)
}

// ListSlides returns every node, newest first
// GET /api/slides
func (h *SlideHandler) ListSlides(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.slides.ListNodes(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, nodes)
}

// CreateSlide generates a root node
// POST /api/slides
func (h *SlideHandler) CreateSlide(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	routine, err := h.flow.CreateRoot(req.Prompt)
	if err != nil {
		handleError(w, err)
		return
	}
	h.stream(w, r, routine)
}

// GetGraph returns the graph view
// GET /api/slides/graph
func (h *SlideHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := h.slides.Graph(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, graph)
}

// SearchSlides matches titles and subtitles
// GET /api/slides/search?q=
func (h *SlideHandler) SearchSlides(w http.ResponseWriter, r *http.Request) {
	hits, err := h.slides.SearchNodes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, hits)
}

// GetSlide returns a node with its relations
// GET /api/slides/{id}
func (h *SlideHandler) GetSlide(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	node, err := h.slides.GetNode(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// UpdateSlide patches the title or main child.
// mainChildId: null clears the main child.
// PATCH /api/slides/{id}
func (h *SlideHandler) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	var req updateSlideRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	patch := &services.UpdateNodeRequest{
		Title:       req.Title,
		MainChildID: req.MainChildID.Patch(""),
	}

	node, err := h.slides.UpdateNode(r.Context(), id, patch)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, node)
}

// Branch generates a child for an action prompt
// POST /api/slides/{id}/branch
func (h *SlideHandler) Branch(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	var req promptRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	routine, err := h.flow.Branch(r.Context(), id, req.Prompt)
	if err != nil {
		handleError(w, err)
		return
	}
	h.stream(w, r, routine)
}

// Continue returns the existing main child, or streams a new one
// POST /api/slides/{id}/continue
func (h *SlideHandler) Continue(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	existing, routine, err := h.flow.Continue(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if existing != "" {
		httputil.RespondJSON(w, http.StatusOK, map[string]any{
			"slideId": existing,
			"exists":  true,
		})
		return
	}
	h.stream(w, r, routine)
}

// AddLink creates a cross-link from the slide
// POST /api/slides/{id}/links
func (h *SlideHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	var req services.CreateLinkRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	req.FromNodeID = id

	link, err := h.links.AddLink(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]string{"id": link.ID})
}

// RemoveLink deletes a cross-link
// DELETE /api/slides/{id}/links
func (h *SlideHandler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	var req removeLinkRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := h.links.RemoveLink(r.Context(), req.LinkID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SlideHandler) stream(w http.ResponseWriter, r *http.Request, routine llmSvc.Routine) {
	sse.Respond(w, r, h.sseConfig, h.logger, routine)
}
