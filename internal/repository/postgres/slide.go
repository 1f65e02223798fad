package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// PostgresSlideRepository implements the SlideRepository interface
type PostgresSlideRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSlideRepository creates a new slide repository
func NewSlideRepository(config *RepositoryConfig) repositories.SlideRepository {
	return &PostgresSlideRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts the node
func (r *PostgresSlideRepository) Create(ctx context.Context, node *slide.Node) error {
	blocks, err := json.Marshal(node.Slide.Blocks)
	if err != nil {
		return fmt.Errorf("encode blocks: %w", err)
	}
	actions, err := json.Marshal(node.Slide.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	history, err := json.Marshal(node.ConversationHistory)
	if err != nil {
		return fmt.Errorf("encode conversation history: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, subtitle, background, dark, blocks, actions,
			parent_id, main_child_id, source_prompt, conversation_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, r.tables.Slides)

	_, err = getExecutor(ctx, r.pool).Exec(ctx, query,
		node.ID,
		nullIfEmpty(node.Slide.Title),
		nullIfEmpty(node.Slide.Subtitle),
		node.Slide.Background,
		node.Slide.Dark,
		string(blocks),
		string(actions),
		node.ParentID,
		node.MainChildID,
		node.SourcePrompt,
		string(history),
		node.CreatedAt,
	)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{Message: "slide already exists", ResourceType: "slide", ResourceID: node.ID}
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("parent slide: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create slide: %w", err)
	}
	return nil
}

// Get returns the node row without derived relations
func (r *PostgresSlideRepository) Get(ctx context.Context, id string) (*slide.Node, error) {
	query := fmt.Sprintf(`
		SELECT title, subtitle, background, dark, blocks, actions,
			parent_id, main_child_id, source_prompt, conversation_history, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Slides)

	var (
		title, subtitle, background *string
		blocks, actions, history    []byte
	)
	node := &slide.Node{ID: id}

	err := getExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&title,
		&subtitle,
		&background,
		&node.Slide.Dark,
		&blocks,
		&actions,
		&node.ParentID,
		&node.MainChildID,
		&node.SourcePrompt,
		&history,
		&node.CreatedAt,
	)
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get slide: %w", err)
	}

	node.Slide.ID = id
	node.Slide.Title = derefString(title)
	node.Slide.Subtitle = derefString(subtitle)
	node.Slide.Background = derefString(background)
	node.Slide.Blocks = []slide.Block{}
	node.CreatedAt = utc(node.CreatedAt)

	if err := json.Unmarshal(blocks, &node.Slide.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &node.Slide.Actions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
	}
	node.ConversationHistory = llm.History{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &node.ConversationHistory); err != nil {
			return nil, fmt.Errorf("decode conversation history: %w", err)
		}
	}
	return node, nil
}

// Exists reports whether a node with the given id exists
func (r *PostgresSlideRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.tables.Slides)

	var exists bool
	if err := getExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slide: %w", err)
	}
	return exists, nil
}

// Children lists nodes whose parent is id, oldest first
func (r *PostgresSlideRepository) Children(ctx context.Context, id string) ([]slide.ChildRef, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.title, COALESCE(p.main_child_id = c.id, FALSE)
		FROM %[1]s c JOIN %[1]s p ON p.id = c.parent_id
		WHERE c.parent_id = $1
		ORDER BY c.created_at, c.id
	`, r.tables.Slides)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	children := []slide.ChildRef{}
	for rows.Next() {
		var c slide.ChildRef
		if err := rows.Scan(&c.ID, &c.Title, &c.IsMain); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// List returns all nodes, newest first
func (r *PostgresSlideRepository) List(ctx context.Context) ([]slide.NodeSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, title, parent_id, created_at
		FROM %s
		ORDER BY created_at DESC, id
	`, r.tables.Slides)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}
	defer rows.Close()

	out := []slide.NodeSummary{}
	for rows.Next() {
		var s slide.NodeSummary
		var createdAt time.Time
		if err := rows.Scan(&s.ID, &s.Title, &s.ParentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		s.CreatedAt = utc(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Search matches query against titles and subtitles, case-insensitively
func (r *PostgresSlideRepository) Search(ctx context.Context, query string, limit int) ([]slide.SearchHit, error) {
	sql := fmt.Sprintf(`
		SELECT id, title
		FROM %s
		WHERE title ILIKE $1 OR subtitle ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`, r.tables.Slides)

	pattern := "%" + escapeLike(query) + "%"
	rows, err := getExecutor(ctx, r.pool).Query(ctx, sql, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search slides: %w", err)
	}
	defer rows.Close()

	hits := []slide.SearchHit{}
	for rows.Next() {
		var h slide.SearchHit
		if err := rows.Scan(&h.ID, &h.Title); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Update applies a patch
func (r *PostgresSlideRepository) Update(ctx context.Context, id string, patch slide.NodePatch) error {
	var sets []string
	args := []interface{}{id}
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.MainChildID != nil {
		args = append(args, nullIfEmpty(*patch.MainChildID))
		sets = append(sets, fmt.Sprintf("main_child_id = $%d", len(args)))
	}
	if len(sets) == 0 {
		exists, err := r.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
		}
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, r.tables.Slides, strings.Join(sets, ", "))
	tag, err := getExecutor(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update slide: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SetMainChild points parent.main_child_id at childID
func (r *PostgresSlideRepository) SetMainChild(ctx context.Context, parentID, childID string) error {
	query := fmt.Sprintf(`UPDATE %s SET main_child_id = $2 WHERE id = $1`, r.tables.Slides)

	tag, err := getExecutor(ctx, r.pool).Exec(ctx, query, parentID, childID)
	if err != nil {
		return fmt.Errorf("set main child: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slide %s: %w", parentID, domain.ErrNotFound)
	}
	return nil
}

// GraphNodes returns every node for the graph view
func (r *PostgresSlideRepository) GraphNodes(ctx context.Context) ([]slide.GraphNode, error) {
	query := fmt.Sprintf(`SELECT id, title, parent_id FROM %s ORDER BY created_at, id`, r.tables.Slides)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list graph nodes: %w", err)
	}
	defer rows.Close()

	nodes := []slide.GraphNode{}
	for rows.Next() {
		var n slide.GraphNode
		if err := rows.Scan(&n.ID, &n.Title, &n.ParentID); err != nil {
			return nil, fmt.Errorf("scan graph node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
