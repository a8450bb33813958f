package postgres

import (
	"context"
	"fmt"
)

// Each family keeps the full document in doc; the other columns are
// projections used for filtering and ordering.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS drugs (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		doc       JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS drugs_processed_idx ON drugs (processed)`,
	`CREATE TABLE IF NOT EXISTS articles (
		id        BIGINT PRIMARY KEY,
		section   TEXT NOT NULL DEFAULT '',
		pubdate   TIMESTAMPTZ NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		doc       JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_pubdate_idx ON articles (pubdate, id)`,
	`CREATE INDEX IF NOT EXISTS articles_processed_idx ON articles (processed)`,
	`CREATE TABLE IF NOT EXISTS vocabulary (
		code TEXT PRIMARY KEY,
		doc  JSONB NOT NULL
	)`,
}

// EnsureSchema creates the tables if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
