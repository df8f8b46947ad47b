package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// QueryCacheRepository implements storage.QueryCacheRepository on PostgreSQL.
type QueryCacheRepository struct {
	pool *pgxpool.Pool
}

var _ storage.QueryCacheRepository = (*QueryCacheRepository)(nil)

// NewQueryCacheRepository creates a new QueryCacheRepository.
func NewQueryCacheRepository(pool *pgxpool.Pool) *QueryCacheRepository {
	return &QueryCacheRepository{pool: pool}
}

// Close is a no-op; the pool is closed by its owner.
func (r *QueryCacheRepository) Close() error {
	return nil
}

// GetCacheEntry retrieves the entry stored under key.
func (r *QueryCacheRepository) GetCacheEntry(ctx context.Context, key string) (*core.QueryCacheEntry, error) {
	query, args, err := selectCacheEntryQuery(key)
	if err != nil {
		return nil, err
	}

	var (
		entry     core.QueryCacheEntry
		embedding string
	)
	err = r.pool.QueryRow(ctx, query, args...).Scan(&entry.Key, &embedding, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if entry.Embedding, err = parseVector(embedding); err != nil {
		return nil, err
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return &entry, nil
}

// UpsertCacheEntry writes entry; concurrent writers for one key resolve to the last write.
func (r *QueryCacheRepository) UpsertCacheEntry(ctx context.Context, entry *core.QueryCacheEntry) error {
	if entry.Key == "" {
		return storage.ErrMissingID
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query, args, err := upsertCacheEntryQuery(entry)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
