package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
	"slidegraph/internal/domain/services"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// ChatPrompts renders the chat prompt templates
type ChatPrompts interface {
	ChatSystemPrompt(title, selectedText string) string
	DefaultChatMessage(selectedText string) string
	ChatToSlidePrompt(title, selectedText, transcript string) string
}

// ChatConfig selects the chat model
type ChatConfig struct {
	Model     string
	MaxTokens int
}

// chatService implements the ChatService interface
type chatService struct {
	store   *repositories.Store
	client  llmSvc.ModelClient
	prompts ChatPrompts
	cfg     ChatConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(
	store *repositories.Store,
	client llmSvc.ModelClient,
	prompts ChatPrompts,
	cfg ChatConfig,
	logger *slog.Logger,
) services.ChatService {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &chatService{
		store:   store,
		client:  client,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Open creates or continues a thread and stores the user's message
func (s *chatService) Open(ctx context.Context, nodeID string, req *services.ChatRequest) (*services.ChatTurn, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SelectedText, validation.When(req.ChatID == "",
			validation.Required.Error("missing selectedText for new chat"))),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	node, err := s.store.Slides.Get(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	var thread *slide.ChatThread
	if req.ChatID != "" {
		thread, err = s.thread(ctx, nodeID, req.ChatID)
		if err != nil {
			return nil, err
		}
	} else {
		thread = &slide.ChatThread{
			ID:           uuid.New().String(),
			NodeID:       nodeID,
			SelectedText: req.SelectedText,
			BlockID:      req.BlockID,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.store.Chats.CreateThread(ctx, thread); err != nil {
			return nil, err
		}
		s.logger.Info("chat created", "chat_id", thread.ID, "node_id", nodeID)
	}

	selected := req.SelectedText
	if selected == "" {
		selected = thread.SelectedText
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = s.prompts.DefaultChatMessage(selected)
	}
	if err := s.append(ctx, thread.ID, llm.RoleUser, message); err != nil {
		return nil, err
	}

	stored, err := s.store.Chats.ListMessages(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	history := make(llm.History, 0, len(stored))
	for _, m := range stored {
		history = append(history, llm.Message{Role: m.Role, Text: m.Content})
	}

	return &services.ChatTurn{
		Thread:     thread,
		SlideTitle: node.Slide.Title,
		Messages:   history,
	}, nil
}

// Answer asks the chat model about the thread and stores the reply
func (s *chatService) Answer(ctx context.Context, turn *services.ChatTurn) (string, error) {
	resp, err := s.client.Complete(ctx, &llmSvc.GenerateRequest{
		Model:     s.cfg.Model,
		System:    s.prompts.ChatSystemPrompt(turn.SlideTitle, turn.Thread.SelectedText),
		Messages:  turn.Messages,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	content := resp.Text()
	if err := s.append(ctx, turn.Thread.ID, llm.RoleAssistant, content); err != nil {
		return "", err
	}

	s.logger.Debug("chat answered",
		"chat_id", turn.Thread.ID,
		"messages", len(turn.Messages)+1,
		"output_tokens", resp.OutputTokens,
	)
	return content, nil
}

// Messages lists a thread's messages
func (s *chatService) Messages(ctx context.Context, nodeID, chatID string) ([]slide.ChatMessage, error) {
	if _, err := s.thread(ctx, nodeID, chatID); err != nil {
		return nil, err
	}
	return s.store.Chats.ListMessages(ctx, chatID)
}

// SlidePrompt renders the chat-to-slide prompt from the thread transcript
func (s *chatService) SlidePrompt(ctx context.Context, nodeID, chatID string) (string, error) {
	node, err := s.store.Slides.Get(ctx, nodeID)
	if err != nil {
		return "", err
	}
	thread, err := s.thread(ctx, nodeID, chatID)
	if err != nil {
		return "", err
	}
	msgs, err := s.store.Chats.ListMessages(ctx, chatID)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return s.prompts.ChatToSlidePrompt(node.Slide.Title, thread.SelectedText, strings.Join(lines, "\n")), nil
}

// thread loads a chat and checks it belongs to nodeID
func (s *chatService) thread(ctx context.Context, nodeID, chatID string) (*slide.ChatThread, error) {
	thread, err := s.store.Chats.GetThread(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if thread.NodeID != nodeID {
		return nil, fmt.Errorf("chat %s on slide %s: %w", chatID, nodeID, domain.ErrNotFound)
	}
	return thread, nil
}

func (s *chatService) append(ctx context.Context, chatID, role, content string) error {
	return s.store.Chats.AppendMessage(ctx, &slide.ChatMessage{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
}
