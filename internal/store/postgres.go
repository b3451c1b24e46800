package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps each document as one jsonb row, for deployments that
// already run PostgreSQL and do not want state on the app host's disk.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS inputsheet_documents (
	name       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresBackend ensures the documents table exists.
func NewPostgresBackend(ctx context.Context, pool *pgxpool.Pool) (*PostgresBackend, error) {
	if _, err := pool.Exec(ctx, createDocumentsTable); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

// Driver implements Backend.
func (b *PostgresBackend) Driver() string { return "postgres" }

// Read implements Backend.
func (b *PostgresBackend) Read(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := b.pool.QueryRow(ctx,
		`SELECT body FROM inputsheet_documents WHERE name = $1`, name,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return body, nil
}

// Write implements Backend. The upsert replaces the whole document in one
// statement.
func (b *PostgresBackend) Write(ctx context.Context, name string, data []byte) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO inputsheet_documents (name, body, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
