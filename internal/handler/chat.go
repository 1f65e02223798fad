package handler

import (
	"log/slog"
	"net/http"

	"slidegraph/internal/domain/services"
	"slidegraph/internal/handler/sse"
	"slidegraph/internal/httputil"
)

// ChatHandler handles chat threads anchored to slide text
type ChatHandler struct {
	chats     services.ChatService
	flow      GenerationFlow
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	chats services.ChatService,
	flow GenerationFlow,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		chats:     chats,
		flow:      flow,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

// SendMessage creates or continues a chat thread and streams the answer
// POST /api/slides/{id}/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}

	var req services.ChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	routine, err := h.flow.Chat(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	sse.Respond(w, r, h.sseConfig, h.logger, routine)
}

// GetMessages returns the messages of a chat thread
// GET /api/slides/{id}/chat/{chatId}
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}
	chatID, ok := PathParam(w, r, "chatId", "Chat ID")
	if !ok {
		return
	}

	msgs, err := h.chats.Messages(r.Context(), id, chatID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

// ToSlide turns a chat thread into a child slide
// POST /api/slides/{id}/chat/{chatId}/to-slide
func (h *ChatHandler) ToSlide(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Slide ID")
	if !ok {
		return
	}
	chatID, ok := PathParam(w, r, "chatId", "Chat ID")
	if !ok {
		return
	}

	routine, err := h.flow.ChatToSlide(r.Context(), id, chatID)
	if err != nil {
		handleError(w, err)
		return
	}
	sse.Respond(w, r, h.sseConfig, h.logger, routine)
}
