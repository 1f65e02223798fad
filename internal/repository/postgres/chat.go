package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// PostgresChatRepository implements the ChatRepository interface
type PostgresChatRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewChatRepository creates a new chat repository
func NewChatRepository(config *RepositoryConfig) repositories.ChatRepository {
	return &PostgresChatRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// CreateThread inserts a chat thread
func (r *PostgresChatRepository) CreateThread(ctx context.Context, thread *slide.ChatThread) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, slide_id, selected_text, block_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Chats)

	_, err := getExecutor(ctx, r.pool).Exec(ctx, query,
		thread.ID, thread.NodeID, thread.SelectedText, thread.BlockID, thread.CreatedAt)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("slide %s: %w", thread.NodeID, domain.ErrNotFound)
		}
		return fmt.Errorf("create chat: %w", err)
	}
	return nil
}

// GetThread returns a chat thread by id
func (r *PostgresChatRepository) GetThread(ctx context.Context, id string) (*slide.ChatThread, error) {
	query := fmt.Sprintf(`
		SELECT id, slide_id, selected_text, block_id, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Chats)

	var t slide.ChatThread
	err := getExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&t.ID, &t.NodeID, &t.SelectedText, &t.BlockID, &t.CreatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("chat %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	t.CreatedAt = utc(t.CreatedAt)
	return &t, nil
}

// ListThreads lists the chat threads of a node with their message counts
func (r *PostgresChatRepository) ListThreads(ctx context.Context, nodeID string) ([]slide.ChatSummary, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.selected_text, c.block_id,
			(SELECT COUNT(*) FROM %s m WHERE m.chat_id = c.id)
		FROM %s c
		WHERE c.slide_id = $1
		ORDER BY c.created_at, c.id
	`, r.tables.ChatMessages, r.tables.Chats)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	chats := []slide.ChatSummary{}
	for rows.Next() {
		var c slide.ChatSummary
		var count int64
		if err := rows.Scan(&c.ID, &c.SelectedText, &c.BlockID, &count); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.MessageCount = int(count)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// AppendMessage inserts a chat message
func (r *PostgresChatRepository) AppendMessage(ctx context.Context, msg *slide.ChatMessage) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, chat_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.ChatMessages)

	_, err := getExecutor(ctx, r.pool).Exec(ctx, query, msg.ID, msg.ChatID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("chat %s: %w", msg.ChatID, domain.ErrNotFound)
		}
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// ListMessages lists the messages of a chat in order
func (r *PostgresChatRepository) ListMessages(ctx context.Context, chatID string) ([]slide.ChatMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, chat_id, role, content, created_at
		FROM %s
		WHERE chat_id = $1
		ORDER BY created_at, id
	`, r.tables.ChatMessages)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []slide.ChatMessage{}
	for rows.Next() {
		var m slide.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.CreatedAt = utc(m.CreatedAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
