package storage

import (
	"context"
	"time"

	"github.com/poiesic/fraudlens/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// ArticleRepository provides operations for managing articles and the similarity query.
// Articles are never deleted.
type ArticleRepository interface {
	Repository

	// UpsertArticles inserts or replaces articles keyed by their content-derived ID.
	// A zero ID is an error. InsertedAt is preserved for existing rows, UpdatedAt is always set.
	// Returns the articles with timestamps populated.
	UpsertArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error)

	// GetArticle retrieves a single article by ID.
	// Returns ErrNotFound if the article doesn't exist.
	GetArticle(ctx context.Context, id core.ID) (*core.Article, error)

	// GetArticles retrieves multiple articles by their IDs, in the order requested.
	// Returns only the articles that exist (no error for missing articles).
	GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error)

	// GetArticlesByDateRange retrieves articles with start <= PublishedAt < end,
	// ordered by publication date.
	GetArticlesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Article, error)

	// GetRecentArticles retrieves up to limit articles, most recently published first.
	GetRecentArticles(ctx context.Context, limit int) ([]*core.Article, error)

	// ListArticleIDs returns up to limit article IDs greater than after, in ascending order.
	// A limit <= 0 returns all remaining IDs.
	ListArticleIDs(ctx context.Context, after core.ID, limit int) ([]core.ID, error)

	// SimilaritySearch scores stored embeddings against vector by cosine similarity.
	// The year and threshold predicates of filters are applied; other filters are left
	// to the caller. Returns up to limit matches, best first, ties in store order.
	SimilaritySearch(ctx context.Context, vector []float32, filters core.SearchFilters, limit int) ([]core.SimilarityMatch, error)
}

// QueryCacheRepository stores embeddings keyed by the hash of normalized text.
type QueryCacheRepository interface {
	Repository

	// GetCacheEntry returns the entry for key.
	// Returns ErrNotFound on a miss.
	GetCacheEntry(ctx context.Context, key string) (*core.QueryCacheEntry, error)

	// UpsertCacheEntry writes the entry. The last write for a key wins.
	UpsertCacheEntry(ctx context.Context, entry *core.QueryCacheEntry) error
}

// CheckpointRepository persists progress markers for long-running jobs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for processorType, or nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for processorType. Clearing a missing
	// checkpoint is not an error.
	ClearCheckpoint(ctx context.Context, processorType string) error
}
