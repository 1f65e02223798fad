package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// ChatRepository implements repositories.ChatRepository on SQLite
type ChatRepository struct {
	db *sql.DB
}

var _ repositories.ChatRepository = (*ChatRepository)(nil)

// CreateThread inserts a chat thread
func (r *ChatRepository) CreateThread(ctx context.Context, thread *slide.ChatThread) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO chats (id, slide_id, selected_text, block_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		thread.ID, thread.NodeID, thread.SelectedText, nullString(thread.BlockID), toMillis(thread.CreatedAt))
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("slide %s: %w", thread.NodeID, domain.ErrNotFound)
		}
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

// GetThread returns a chat thread by id
func (r *ChatRepository) GetThread(ctx context.Context, id string) (*slide.ChatThread, error) {
	var t slide.ChatThread
	var blockID sql.NullString
	var createdAt int64
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, slide_id, selected_text, block_id, created_at FROM chats WHERE id = ?`, id,
	).Scan(&t.ID, &t.NodeID, &t.SelectedText, &blockID, &createdAt)
	if err != nil {
		if isNoRowsError(err) {
			return nil, fmt.Errorf("chat %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	t.BlockID, t.CreatedAt = stringPtr(blockID), fromMillis(createdAt)
	return &t, nil
}

// ListThreads lists the chat threads of a node with their message counts
func (r *ChatRepository) ListThreads(ctx context.Context, nodeID string) ([]slide.ChatSummary, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT c.id, c.selected_text, c.block_id,
			(SELECT COUNT(*) FROM chat_messages m WHERE m.chat_id = c.id)
		FROM chats c
		WHERE c.slide_id = ?
		ORDER BY c.created_at, c.id`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := []slide.ChatSummary{}
	for rows.Next() {
		var c slide.ChatSummary
		var blockID sql.NullString
		if err := rows.Scan(&c.ID, &c.SelectedText, &blockID, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.BlockID = stringPtr(blockID)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// AppendMessage inserts a chat message
func (r *ChatRepository) AppendMessage(ctx context.Context, msg *slide.ChatMessage) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ChatID, msg.Role, msg.Content, toMillis(msg.CreatedAt))
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("chat %s: %w", msg.ChatID, domain.ErrNotFound)
		}
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// ListMessages lists the messages of a chat in order
func (r *ChatRepository) ListMessages(ctx context.Context, chatID string) ([]slide.ChatMessage, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, chat_id, role, content, created_at FROM chat_messages
		WHERE chat_id = ?
		ORDER BY created_at, rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []slide.ChatMessage{}
	for rows.Next() {
		var m slide.ChatMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
