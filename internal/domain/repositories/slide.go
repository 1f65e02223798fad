package repositories

import (
	"context"

	"slidegraph/internal/domain/models/slide"
)

// SlideRepository persists slide nodes. Nodes are append-only apart from the
// title and main-child pointer.
type SlideRepository interface {
	// Create inserts the node. ID and CreatedAt are assigned by the caller.
	// Returns ErrNotFound if ParentID references a missing node.
	Create(ctx context.Context, node *slide.Node) error

	// Get returns the node row without derived relations (children, links, chats).
	Get(ctx context.Context, id string) (*slide.Node, error)

	// Exists reports whether a node with the given id exists
	Exists(ctx context.Context, id string) (bool, error)

	// Children lists nodes whose parent is id
	Children(ctx context.Context, id string) ([]slide.ChildRef, error)

	// List returns all nodes, newest first
	List(ctx context.Context) ([]slide.NodeSummary, error)

	// Search matches query against titles and subtitles (substring, case-insensitive)
	Search(ctx context.Context, query string, limit int) ([]slide.SearchHit, error)

	// Update applies a patch; ErrNotFound if the node does not exist
	Update(ctx context.Context, id string, patch slide.NodePatch) error

	// SetMainChild points parent.main_child_id at childID
	SetMainChild(ctx context.Context, parentID, childID string) error

	// GraphNodes returns every node for the graph view
	GraphNodes(ctx context.Context) ([]slide.GraphNode, error)
}

// LinkRepository persists arbitrary node-to-node links
type LinkRepository interface {
	// Create inserts a link; ConflictError if the (from, to) pair exists
	Create(ctx context.Context, link *slide.Link) error

	// Delete removes a link by id. Deleting a missing link is not an error.
	Delete(ctx context.Context, id string) error

	// Outgoing lists links from nodeID, titled with the target node
	Outgoing(ctx context.Context, nodeID string) ([]slide.LinkRef, error)

	// Incoming lists links to nodeID, titled with the source node
	Incoming(ctx context.Context, nodeID string) ([]slide.LinkRef, error)

	// Edges returns every link for the graph view
	Edges(ctx context.Context) ([]slide.GraphEdge, error)
}

// ChatRepository persists chat threads and their messages
type ChatRepository interface {
	CreateThread(ctx context.Context, thread *slide.ChatThread) error
	GetThread(ctx context.Context, id string) (*slide.ChatThread, error)
	ListThreads(ctx context.Context, nodeID string) ([]slide.ChatSummary, error)
	AppendMessage(ctx context.Context, msg *slide.ChatMessage) error
	ListMessages(ctx context.Context, chatID string) ([]slide.ChatMessage, error)
}

// Store bundles the graph store repositories of one backend
type Store struct {
	Slides SlideRepository
	Links  LinkRepository
	Chats  ChatRepository
	Tx     TransactionManager
}
