package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slidegraph/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Slides       string
	SlideLinks   string
	Chats        string
	ChatMessages string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Slides:       fmt.Sprintf("%sslides", prefix),
		SlideLinks:   fmt.Sprintf("%sslide_links", prefix),
		Chats:        fmt.Sprintf("%schats", prefix),
		ChatMessages: fmt.Sprintf("%schat_messages", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool with automatic PgBouncer compatibility.
//
// Port 6543 (Supabase transaction pooler) does not support prepared
// statements, so it is switched to QueryExecModeCacheDescribe unless the
// connection string sets default_query_exec_mode explicitly.
//
// Dynamic table prefixes (dev_, test_, prod_) are interpolated before the SQL
// reaches the database, so each environment gets its own statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 2

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewStore returns the graph store repositories backed by the pool
func NewStore(config *RepositoryConfig) *repositories.Store {
	return &repositories.Store{
		Slides: NewSlideRepository(config),
		Links:  NewLinkRepository(config),
		Chats:  NewChatRepository(config),
		Tx:     NewTransactionManager(config.Pool, config.Logger),
	}
}

// querier is implemented by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// getExecutor returns the transaction stored in ctx by ExecTx, or pool
func getExecutor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
