package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool parses dsn, connects and pings the database.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, ErrDSNRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		"component", "postgres",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
	)
	return pool, nil
}

// Repositories bundles the repositories that share one pool.
type Repositories struct {
	Articles    *ArticleRepository
	Cache       *QueryCacheRepository
	Checkpoints *CheckpointRepository
	Pool        *pgxpool.Pool
}

// Open connects to dsn, applies the schema for vectors of the given length and
// returns the repositories.
func Open(ctx context.Context, dsn string, dimensions int, logger *slog.Logger) (*Repositories, error) {
	pool, err := NewPool(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool, dimensions); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repositories{
		Articles:    NewArticleRepository(pool, dimensions, logger),
		Cache:       NewQueryCacheRepository(pool),
		Checkpoints: NewCheckpointRepository(pool),
		Pool:        pool,
	}, nil
}

// Close closes the pool.
func (r *Repositories) Close() error {
	r.Pool.Close()
	return nil
}
