package slide

import (
	"time"

	"slidegraph/internal/domain/models/llm"
)

// Node is a persisted slide in the graph.
//
// Nodes are immutable once created except for Title (stored on the slide) and
// MainChildID. Children, Links, Backlinks and Chats are derived on read.
type Node struct {
	ID                  string      `json:"id"`
	Slide               Slide       `json:"slide"`
	ParentID            *string     `json:"parentId"`
	MainChildID         *string     `json:"mainChildId"`
	SourcePrompt        *string     `json:"sourcePrompt,omitempty"`
	ConversationHistory llm.History `json:"conversationHistory"`
	CreatedAt           time.Time   `json:"createdAt"`

	Children  []ChildRef    `json:"children"`
	Links     []LinkRef     `json:"links"`
	Backlinks []LinkRef     `json:"backlinks"`
	Chats     []ChatSummary `json:"chats"`
}

// ChildRef is a child node as seen from its parent
type ChildRef struct {
	ID     string  `json:"id"`
	Title  *string `json:"title"`
	IsMain bool    `json:"isMain"`
}

// LinkRef is one end of an arbitrary link edge. SlideID is the node on the
// other side of the edge.
type LinkRef struct {
	ID      string  `json:"id"`
	SlideID string  `json:"slideId"`
	Title   *string `json:"title"`
}

// ChatSummary describes a chat thread anchored to a node
type ChatSummary struct {
	ID           string  `json:"id"`
	SelectedText string  `json:"selectedText"`
	BlockID      *string `json:"blockId"`
	MessageCount int     `json:"messageCount"`
}

// NodeSummary is a row of the node listing
type NodeSummary struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchHit is a node matched by a title/subtitle search
type SearchHit struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// NodePatch carries the only mutable node fields. A nil field is left as is.
type NodePatch struct {
	Title       *string
	MainChildID *string
}

// Link is a many-to-many edge between two nodes, distinct from parent/child
type Link struct {
	ID         string    `json:"id"`
	FromNodeID string    `json:"from"`
	ToNodeID   string    `json:"to"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Graph is the whole node/edge set used for visualization
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphEdge `json:"links"`
}

// GraphNode is a node in the graph visualization
type GraphNode struct {
	ID       string  `json:"id"`
	Title    *string `json:"title"`
	ParentID *string `json:"parentId"`
}

// GraphEdge is a link in the graph visualization
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChatThread is a side conversation anchored to a text selection on a node
type ChatThread struct {
	ID           string    `json:"id"`
	NodeID       string    `json:"slideId"`
	SelectedText string    `json:"selectedText"`
	BlockID      *string   `json:"blockId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChatMessage is one message of a chat thread
type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
