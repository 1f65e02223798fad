package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// SlideRepository implements repositories.SlideRepository on SQLite
type SlideRepository struct {
	db *sql.DB
}

var _ repositories.SlideRepository = (*SlideRepository)(nil)

// Create inserts the node
func (r *SlideRepository) Create(ctx context.Context, node *slide.Node) error {
	exec := getExecutor(ctx, r.db)

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

	_, err = exec.ExecContext(ctx, `
		INSERT INTO slides (id, title, subtitle, background, dark, blocks, actions,
			parent_id, main_child_id, source_prompt, conversation_history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		node.ID,
		emptyToNull(node.Slide.Title),
		emptyToNull(node.Slide.Subtitle),
		node.Slide.Background,
		node.Slide.Dark,
		string(blocks),
		string(actions),
		nullString(node.ParentID),
		nullString(node.MainChildID),
		nullString(node.SourcePrompt),
		string(history),
		toMillis(node.CreatedAt),
	)
	if err != nil {
		if isUniqueError(err) {
			return &domain.ConflictError{Message: "slide already exists", ResourceType: "slide", ResourceID: node.ID}
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("parent slide: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create slide: %w", err)
	}
	return nil
}

// Get returns the node row without derived relations
func (r *SlideRepository) Get(ctx context.Context, id string) (*slide.Node, error) {
	exec := getExecutor(ctx, r.db)

	var (
		title, subtitle, background      sql.NullString
		actions, history                 sql.NullString
		parentID, mainChildID, srcPrompt sql.NullString
		dark                             sql.NullBool
		blocks                           string
		createdAt                        int64
	)
	err := exec.QueryRowContext(ctx, `
		SELECT title, subtitle, background, dark, blocks, actions,
			parent_id, main_child_id, source_prompt, conversation_history, created_at
		FROM slides WHERE id = ?`, id,
	).Scan(&title, &subtitle, &background, &dark, &blocks, &actions,
		&parentID, &mainChildID, &srcPrompt, &history, &createdAt)
	if err != nil {
		if isNoRowsError(err) {
			return nil, fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get slide: %w", err)
	}

	node := &slide.Node{
		ID: id,
		Slide: slide.Slide{
			ID:         id,
			Title:      title.String,
			Subtitle:   subtitle.String,
			Background: background.String,
			Dark:       dark.Bool,
			Blocks:     []slide.Block{},
		},
		ParentID:     stringPtr(parentID),
		MainChildID:  stringPtr(mainChildID),
		SourcePrompt: stringPtr(srcPrompt),
		CreatedAt:    fromMillis(createdAt),
	}

	if err := json.Unmarshal([]byte(blocks), &node.Slide.Blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	if actions.Valid && actions.String != "" {
		if err := json.Unmarshal([]byte(actions.String), &node.Slide.Actions); err != nil {
			return nil, fmt.Errorf("decode actions: %w", err)
		}
	}
	node.ConversationHistory = llm.History{}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &node.ConversationHistory); err != nil {
			return nil, fmt.Errorf("decode conversation history: %w", err)
		}
	}
	return node, nil
}

// Exists reports whether a node with the given id exists
func (r *SlideRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM slides WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check slide: %w", err)
	}
	return n > 0, nil
}

// Children lists nodes whose parent is id, oldest first
func (r *SlideRepository) Children(ctx context.Context, id string) ([]slide.ChildRef, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT c.id, c.title, COALESCE(p.main_child_id = c.id, 0)
		FROM slides c JOIN slides p ON p.id = c.parent_id
		WHERE c.parent_id = ?
		ORDER BY c.created_at, c.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	children := []slide.ChildRef{}
	for rows.Next() {
		var c slide.ChildRef
		var title sql.NullString
		if err := rows.Scan(&c.ID, &title, &c.IsMain); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		c.Title = stringPtr(title)
		children = append(children, c)
	}
	return children, rows.Err()
}

// List returns all nodes, newest first
func (r *SlideRepository) List(ctx context.Context) ([]slide.NodeSummary, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, title, parent_id, created_at FROM slides
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}
	defer rows.Close()

	out := []slide.NodeSummary{}
	for rows.Next() {
		var s slide.NodeSummary
		var title, parentID sql.NullString
		var createdAt int64
		if err := rows.Scan(&s.ID, &title, &parentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		s.Title, s.ParentID, s.CreatedAt = stringPtr(title), stringPtr(parentID), fromMillis(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Search matches query against titles and subtitles
func (r *SlideRepository) Search(ctx context.Context, query string, limit int) ([]slide.SearchHit, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, `
		SELECT id, title FROM slides
		WHERE title LIKE ? ESCAPE '\' OR subtitle LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search slides: %w", err)
	}
	defer rows.Close()

	hits := []slide.SearchHit{}
	for rows.Next() {
		var h slide.SearchHit
		var title sql.NullString
		if err := rows.Scan(&h.ID, &title); err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		h.Title = stringPtr(title)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Update applies a patch
func (r *SlideRepository) Update(ctx context.Context, id string, patch slide.NodePatch) error {
	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.MainChildID != nil {
		sets = append(sets, "main_child_id = ?")
		args = append(args, emptyToNull(*patch.MainChildID))
	}
	if len(sets) == 0 {
		return r.ensureExists(ctx, id)
	}

	args = append(args, id)
	res, err := getExecutor(ctx, r.db).ExecContext(ctx,
		"UPDATE slides SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update slide: %w", err)
	}
	return requireAffected(res, id)
}

// SetMainChild points parent.main_child_id at childID
func (r *SlideRepository) SetMainChild(ctx context.Context, parentID, childID string) error {
	res, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`UPDATE slides SET main_child_id = ? WHERE id = ?`, childID, parentID)
	if err != nil {
		return fmt.Errorf("set main child: %w", err)
	}
	return requireAffected(res, parentID)
}

// GraphNodes returns every node for the graph view
func (r *SlideRepository) GraphNodes(ctx context.Context) ([]slide.GraphNode, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT id, title, parent_id FROM slides ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list graph nodes: %w", err)
	}
	defer rows.Close()

	nodes := []slide.GraphNode{}
	for rows.Next() {
		var n slide.GraphNode
		var title, parentID sql.NullString
		if err := rows.Scan(&n.ID, &title, &parentID); err != nil {
			return nil, fmt.Errorf("scan graph node: %w", err)
		}
		n.Title, n.ParentID = stringPtr(title), stringPtr(parentID)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (r *SlideRepository) ensureExists(ctx context.Context, id string) error {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
