package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/fraudlens/core"
)

const (
	articlesTable    = "articles"
	cacheTable       = "query_cache"
	checkpointsTable = "checkpoints"
)

// schemaStatements creates the tables used by the repositories. Statements are idempotent.
func schemaStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id              bigint PRIMARY KEY,
	title           text NOT NULL,
	published_at    timestamptz NOT NULL,
	source          text NOT NULL,
	url             text NOT NULL DEFAULT '',
	text            text NOT NULL DEFAULT '',
	normalized_text text NOT NULL DEFAULT '',
	fraud_type      text NOT NULL DEFAULT '',
	fraud_tags      text[] NOT NULL DEFAULT '{}',
	summary         text NOT NULL DEFAULT '',
	classified      boolean NOT NULL DEFAULT false,
	embedding       vector(%d),
	ml_prediction   text,
	ml_confidence   double precision,
	inserted_at     timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
)`, articlesTable, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_published_at_idx ON %[1]s (published_at)`, articlesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        text PRIMARY KEY,
	embedding  vector(%d) NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
)`, cacheTable, dimensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	processor_type text PRIMARY KEY,
	last_id        bigint NOT NULL,
	updated_at     timestamptz NOT NULL DEFAULT now()
)`, checkpointsTable),
	}
}

// Migrate applies the schema for vectors of the given length. dimensions below 1
// means core.EmbeddingDimensions.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	if dimensions < 1 {
		dimensions = core.EmbeddingDimensions
	}
	for _, stmt := range schemaStatements(dimensions) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
