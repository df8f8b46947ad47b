package embedcache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/textnorm"
	"golang.org/x/sync/singleflight"
)

// EmbedFunc produces an embedding for text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Key returns the cache key for text: the hex BLAKE2b-256 digest of its normalized form.
func Key(text string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(textnorm.Normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache deduplicates embedding calls by persisting vectors keyed on normalized text.
// It is safe for concurrent use.
type Cache struct {
	store      storage.QueryCacheRepository
	dimensions int
	group      singleflight.Group
	logger     *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache) error

// WithDimensions sets the required embedding length.
// Default is core.EmbeddingDimensions.
func WithDimensions(dimensions int) Option {
	return func(c *Cache) error {
		if dimensions < 1 {
			return ErrInvalidDimensions
		}
		c.dimensions = dimensions
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a cache backed by store.
func New(store storage.QueryCacheRepository, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	c := &Cache{
		store:      store,
		dimensions: core.EmbeddingDimensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "embedcache")
	return c, nil
}

// Dimensions returns the embedding length the cache enforces.
func (c *Cache) Dimensions() int {
	return c.dimensions
}

// GetOrCreate returns the cached embedding for text, calling embed and storing the
// result on a miss. Empty text fails with core.ErrEmptyInput without calling embed.
// Provider failures and wrong-sized vectors are returned without writing to the store.
//
// Concurrent misses on one key share a single load. Each caller waits under its own
// ctx, and a caller whose ctx is still live retries alone when the shared load was
// ended by another caller's ctx.
func (c *Cache) GetOrCreate(ctx context.Context, text string, embed EmbedFunc) ([]float32, error) {
	normalized := textnorm.Normalize(text)
	if normalized == "" {
		return nil, core.ErrEmptyInput
	}
	key := Key(normalized)

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-c.group.DoChan(key, func() (any, error) {
		return c.load(ctx, key, normalized, embed)
	}):
	}
	if res.Err != nil && isContextError(res.Err) && ctx.Err() == nil {
		// The collapsed call ran under another caller's context, which ended first
		c.logger.Debug("shared load cancelled, loading again", "key", key)
		vector, err := c.load(ctx, key, normalized, embed)
		res = singleflight.Result{Val: vector, Err: err}
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.Debug("collapsed concurrent miss", "key", key)
	}
	// Callers may mutate their copy
	return append([]float32(nil), res.Val.([]float32)...), nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Cache) load(ctx context.Context, key, text string, embed EmbedFunc) ([]float32, error) {
	entry, err := c.store.GetCacheEntry(ctx, key)
	switch {
	case err == nil:
		if len(entry.Embedding) != c.dimensions {
			return nil, &core.DimensionError{Expected: c.dimensions, Got: len(entry.Embedding)}
		}
		c.logger.Debug("cache hit", "key", key)
		return entry.Embedding, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}

	c.logger.Debug("cache miss", "key", key)
	vector, err := embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingProvider, err)
	}
	if err := core.CheckDimensions(vector, c.dimensions); err != nil {
		return nil, err
	}

	if err := c.store.UpsertCacheEntry(ctx, &core.QueryCacheEntry{Key: key, Embedding: vector}); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return vector, nil
}
