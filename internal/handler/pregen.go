package handler

import (
	"log/slog"
	"net/http"

	"slidegraph/internal/httputil"
)

// PregenHandler exposes speculative generation state
type PregenHandler struct {
	flow   GenerationFlow
	logger *slog.Logger
}

// NewPregenHandler creates a new pregen handler
func NewPregenHandler(flow GenerationFlow, logger *slog.Logger) *PregenHandler {
	return &PregenHandler{flow: flow, logger: logger}
}

// Start (re)starts speculation for the branches of a slide
// POST /api/slides/{id}/pregen
func (h *PregenHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	entries, err := h.flow.Speculate(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, entries)
}

// Status returns the speculative entries of a slide
// GET /api/slides/{id}/pregen
func (h *PregenHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.flow.PregenStatus(id))
}

// Invalidate drops all speculation
// DELETE /api/pregen
func (h *PregenHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	h.flow.Invalidate()
	h.logger.Debug("speculation invalidated")
	w.WriteHeader(http.StatusNoContent)
}
