package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the graph store tables for the configured prefix
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			title TEXT,
			subtitle TEXT,
			background TEXT DEFAULT '#ffffff',
			dark BOOLEAN NOT NULL DEFAULT FALSE,
			blocks JSONB NOT NULL,
			actions JSONB,
			parent_id TEXT REFERENCES %[1]s(id),
			main_child_id TEXT,
			source_prompt TEXT,
			conversation_history JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.Slides),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_parent ON %[1]s(parent_id)`, tables.Slides),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			from_slide_id TEXT NOT NULL REFERENCES %[2]s(id),
			to_slide_id TEXT NOT NULL REFERENCES %[2]s(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (from_slide_id, to_slide_id)
		)`, tables.SlideLinks, tables.Slides),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			slide_id TEXT NOT NULL REFERENCES %s(id),
			selected_text TEXT NOT NULL,
			block_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.Chats, tables.Slides),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL REFERENCES %s(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, tables.ChatMessages, tables.Chats),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops the graph store tables for the configured prefix
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.ChatMessages, tables.Chats, tables.SlideLinks, tables.Slides} {
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
