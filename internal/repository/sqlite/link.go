package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// LinkRepository implements repositories.LinkRepository on SQLite
type LinkRepository struct {
	db *sql.DB
}

var _ repositories.LinkRepository = (*LinkRepository)(nil)

// Create inserts a link
func (r *LinkRepository) Create(ctx context.Context, link *slide.Link) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO slide_links (id, from_slide_id, to_slide_id, created_at)
		VALUES (?, ?, ?, ?)`,
		link.ID, link.FromNodeID, link.ToNodeID, toMillis(link.CreatedAt))
	if err != nil {
		if isUniqueError(err) {
			return &domain.ConflictError{
				Message:      "link already exists",
				ResourceType: "link",
			}
		}
		if isForeignKeyError(err) {
			return fmt.Errorf("linked slide: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// Delete removes a link by id
func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	if _, err := getExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM slide_links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// Outgoing lists links from nodeID, titled with the target node
func (r *LinkRepository) Outgoing(ctx context.Context, nodeID string) ([]slide.LinkRef, error) {
	return r.refs(ctx, `
		SELECT l.id, s.id, s.title
		FROM slide_links l JOIN slides s ON s.id = l.to_slide_id
		WHERE l.from_slide_id = ?
		ORDER BY l.created_at, l.id`, nodeID)
}

// Incoming lists links to nodeID, titled with the source node
func (r *LinkRepository) Incoming(ctx context.Context, nodeID string) ([]slide.LinkRef, error) {
	return r.refs(ctx, `
		SELECT l.id, s.id, s.title
		FROM slide_links l JOIN slides s ON s.id = l.from_slide_id
		WHERE l.to_slide_id = ?
		ORDER BY l.created_at, l.id`, nodeID)
}

func (r *LinkRepository) refs(ctx context.Context, query, nodeID string) ([]slide.LinkRef, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	refs := []slide.LinkRef{}
	for rows.Next() {
		var ref slide.LinkRef
		var title sql.NullString
		if err := rows.Scan(&ref.ID, &ref.SlideID, &title); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		ref.Title = stringPtr(title)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Edges returns every link for the graph view
func (r *LinkRepository) Edges(ctx context.Context) ([]slide.GraphEdge, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT from_slide_id, to_slide_id FROM slide_links ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	edges := []slide.GraphEdge{}
	for rows.Next() {
		var e slide.GraphEdge
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
