package services

import (
	"context"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
)

// CreateNodeRequest represents a request to persist a finalized slide
type CreateNodeRequest struct {
	Slide        *slide.Slide
	ParentID     *string
	History      llm.History
	SourcePrompt string
	IsMainChild  bool
}

// UpdateNodeRequest carries the mutable node fields; nil leaves a field unchanged
type UpdateNodeRequest struct {
	Title       *string `json:"title"`
	MainChildID *string `json:"mainChildId"`
}

// SlideService defines graph store operations on slide nodes
type SlideService interface {
	// CreateNode persists a node and, if IsMainChild, points the parent's
	// main-child pointer at it
	CreateNode(ctx context.Context, req *CreateNodeRequest) (*slide.Node, error)

	// GetNode returns a node with children, links, backlinks and chats
	GetNode(ctx context.Context, id string) (*slide.Node, error)

	ListNodes(ctx context.Context) ([]slide.NodeSummary, error)

	// SearchNodes matches titles and subtitles. An empty query matches nothing.
	SearchNodes(ctx context.Context, query string) ([]slide.SearchHit, error)

	UpdateNode(ctx context.Context, id string, req *UpdateNodeRequest) (*slide.Node, error)

	// Graph returns every node and link
	Graph(ctx context.Context) (*slide.Graph, error)
}

// CreateLinkRequest represents a request to link two nodes
type CreateLinkRequest struct {
	FromNodeID string `json:"-"`
	ToNodeID   string `json:"toSlideId"`
}

// LinkService defines operations on arbitrary node links
type LinkService interface {
	// AddLink fails with ErrInvalidArgument for self-links, ErrNotFound if
	// either node is missing and ConflictError if the pair is already linked
	AddLink(ctx context.Context, req *CreateLinkRequest) (*slide.Link, error)

	// RemoveLink is idempotent
	RemoveLink(ctx context.Context, linkID string) error
}

// ChatRequest starts a new chat thread (ChatID empty) or continues one
type ChatRequest struct {
	ChatID       string  `json:"chatId"`
	SelectedText string  `json:"selectedText"`
	BlockID      *string `json:"blockId"`
	Message      string  `json:"message"`
}

// ChatTurn is a chat thread with a stored user message awaiting an answer
type ChatTurn struct {
	Thread     *slide.ChatThread
	SlideTitle string
	Messages   llm.History
}

// ChatService defines side conversations anchored to a node's text
type ChatService interface {
	// Open validates the request, creates or loads the thread and stores the
	// user message
	Open(ctx context.Context, nodeID string, req *ChatRequest) (*ChatTurn, error)

	// Answer asks the chat model and stores its reply
	Answer(ctx context.Context, turn *ChatTurn) (string, error)

	// Messages lists a thread's messages
	Messages(ctx context.Context, nodeID, chatID string) ([]slide.ChatMessage, error)

	// SlidePrompt builds the generation prompt that turns a thread into a slide
	SlidePrompt(ctx context.Context, nodeID, chatID string) (string, error)
}
