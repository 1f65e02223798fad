package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
)

// PostgresLinkRepository implements the LinkRepository interface
type PostgresLinkRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(config *RepositoryConfig) repositories.LinkRepository {
	return &PostgresLinkRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a link
func (r *PostgresLinkRepository) Create(ctx context.Context, link *slide.Link) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, from_slide_id, to_slide_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, r.tables.SlideLinks)

	_, err := getExecutor(ctx, r.pool).Exec(ctx, query, link.ID, link.FromNodeID, link.ToNodeID, link.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return &domain.ConflictError{Message: "link already exists", ResourceType: "link"}
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("linked slide: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

// Delete removes a link by id
func (r *PostgresLinkRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.SlideLinks)
	if _, err := getExecutor(ctx, r.pool).Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	return nil
}

// Outgoing lists links from nodeID, titled with the target node
func (r *PostgresLinkRepository) Outgoing(ctx context.Context, nodeID string) ([]slide.LinkRef, error) {
	query := fmt.Sprintf(`
		SELECT l.id, s.id, s.title
		FROM %s l JOIN %s s ON s.id = l.to_slide_id
		WHERE l.from_slide_id = $1
		ORDER BY l.created_at, l.id
	`, r.tables.SlideLinks, r.tables.Slides)
	return r.refs(ctx, query, nodeID)
}

// Incoming lists links to nodeID, titled with the source node
func (r *PostgresLinkRepository) Incoming(ctx context.Context, nodeID string) ([]slide.LinkRef, error) {
	query := fmt.Sprintf(`
		SELECT l.id, s.id, s.title
		FROM %s l JOIN %s s ON s.id = l.from_slide_id
		WHERE l.to_slide_id = $1
		ORDER BY l.created_at, l.id
	`, r.tables.SlideLinks, r.tables.Slides)
	return r.refs(ctx, query, nodeID)
}

func (r *PostgresLinkRepository) refs(ctx context.Context, query, nodeID string) ([]slide.LinkRef, error) {
	rows, err := getExecutor(ctx, r.pool).Query(ctx, query, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	refs := []slide.LinkRef{}
	for rows.Next() {
		var ref slide.LinkRef
		if err := rows.Scan(&ref.ID, &ref.SlideID, &ref.Title); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Edges returns every link for the graph view
func (r *PostgresLinkRepository) Edges(ctx context.Context) ([]slide.GraphEdge, error) {
	query := fmt.Sprintf(`SELECT from_slide_id, to_slide_id FROM %s ORDER BY created_at, id`, r.tables.SlideLinks)

	rows, err := getExecutor(ctx, r.pool).Query(ctx, query)
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
