package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"slidegraph/internal/domain/repositories"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS slides (
	id TEXT PRIMARY KEY,
	title TEXT,
	subtitle TEXT,
	background TEXT DEFAULT '#ffffff',
	dark INTEGER DEFAULT 0,
	blocks TEXT NOT NULL,
	actions TEXT,
	parent_id TEXT REFERENCES slides(id),
	main_child_id TEXT,
	source_prompt TEXT,
	conversation_history TEXT,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_slides_parent ON slides(parent_id);

CREATE TABLE IF NOT EXISTS slide_links (
	id TEXT PRIMARY KEY,
	from_slide_id TEXT NOT NULL REFERENCES slides(id),
	to_slide_id TEXT NOT NULL REFERENCES slides(id),
	created_at INTEGER NOT NULL,
	UNIQUE(from_slide_id, to_slide_id)
);

CREATE TABLE IF NOT EXISTS chats (
	id TEXT PRIMARY KEY,
	slide_id TEXT NOT NULL REFERENCES slides(id),
	selected_text TEXT NOT NULL,
	block_id TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	chat_id TEXT NOT NULL REFERENCES chats(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id);
`

// DB wraps the SQLite graph store connection
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path and ensures the schema.
// MemoryPath opens a database that lives as long as the DB.
func Open(path string) (*DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == MemoryPath {
		// Every connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Store returns the graph store repositories backed by this database
func (d *DB) Store() *repositories.Store {
	return &repositories.Store{
		Slides: &SlideRepository{db: d.db},
		Links:  &LinkRepository{db: d.db},
		Chats:  &ChatRepository{db: d.db},
		Tx:     &TransactionManager{db: d.db},
	}
}

// execer is implemented by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// getExecutor returns the transaction stored in ctx, or db
func getExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TransactionManager runs functions in a SQLite transaction
type TransactionManager struct {
	db *sql.DB
}

// ExecTx executes fn within a transaction. Nested calls join the outer one.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Safe even if commit succeeds
	defer func() { _ = tx.Rollback() }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
