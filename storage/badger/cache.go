package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// QueryCacheRepository implements storage.QueryCacheRepository for BadgerDB.
// Eviction is not performed.
type QueryCacheRepository struct {
	backend *Backend
}

var _ storage.QueryCacheRepository = (*QueryCacheRepository)(nil)

// NewQueryCacheRepository creates a new QueryCacheRepository.
func NewQueryCacheRepository(backend *Backend) *QueryCacheRepository {
	return &QueryCacheRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is closed by its owner.
func (r *QueryCacheRepository) Close() error {
	return nil
}

// GetCacheEntry retrieves the entry stored under key.
func (r *QueryCacheRepository) GetCacheEntry(ctx context.Context, key string) (*core.QueryCacheEntry, error) {
	var entry *core.QueryCacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalQueryCacheEntry(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpsertCacheEntry writes entry, replacing any previous entry for the key.
func (r *QueryCacheRepository) UpsertCacheEntry(ctx context.Context, entry *core.QueryCacheEntry) error {
	if entry.Key == "" {
		return storage.ErrMissingID
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		if err := tx.Set(makeCacheKey(entry.Key), storage.MarshalQueryCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
