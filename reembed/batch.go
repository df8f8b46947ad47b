package reembed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/embedcache"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/textnorm"
)

// EmbeddingCache resolves text to an embedding, reusing stored vectors.
type EmbeddingCache interface {
	GetOrCreate(ctx context.Context, text string, embed embedcache.EmbedFunc) ([]float32, error)
}

// BatchStats counts the outcome of one processed batch.
type BatchStats struct {
	Embedded int
	Skipped  int
}

// BatchProcessor handles embedding generation for batches of articles.
//
// With a cache, vectors are resolved through it so articles sharing text share
// one provider call. Without one, every article is embedded directly through
// the provider in a single batched call, overwriting whatever was stored.
type BatchProcessor struct {
	repo           storage.ArticleRepository
	cache          EmbeddingCache
	embedder       ai.Embedder
	dimensions     int
	maxChars       int
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// cache: nil selects refresh mode, embedding directly through embedder
// maxRetries: maximum number of attempts for provider and store calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.ArticleRepository, cache EmbeddingCache, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		cache:          cache,
		embedder:       embedder,
		dimensions:     core.EmbeddingDimensions,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds a batch of articles and writes them back to the store.
// Articles whose normalized text is empty are counted as skipped and left untouched.
func (bp *BatchProcessor) Process(ctx context.Context, articles []*core.Article) (BatchStats, error) {
	var stats BatchStats
	if len(articles) == 0 {
		return stats, nil
	}

	pending := make([]*core.Article, 0, len(articles))
	texts := make([]string, 0, len(articles))
	for _, article := range articles {
		if article.NormalizedText == "" {
			article.NormalizedText = textnorm.Normalize(article.Text)
		}
		if article.NormalizedText == "" {
			stats.Skipped++
			continue
		}
		pending = append(pending, article)
		texts = append(texts, textnorm.Truncate(article.NormalizedText, bp.maxChars))
	}
	if len(pending) == 0 {
		return stats, nil
	}

	var (
		embeddings [][]float32
		err        error
	)
	if bp.cache == nil {
		embeddings, err = bp.embedDirect(ctx, texts)
	} else {
		embeddings, err = bp.embedCached(ctx, texts)
	}
	if err != nil {
		return stats, err
	}

	updated := make([]*core.Article, 0, len(pending))
	for i, article := range pending {
		if embeddings[i] == nil {
			stats.Skipped++
			continue
		}
		article.Embedding = embeddings[i]
		updated = append(updated, article)
	}
	if len(updated) == 0 {
		return stats, nil
	}

	err = RetryWithBackoff(ctx, func() error {
		if _, err := bp.repo.UpsertArticles(ctx, updated...); err != nil {
			return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		return nil
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return stats, fmt.Errorf("failed to update articles: %w", err)
	}

	stats.Embedded = len(updated)
	return stats, nil
}

func (bp *BatchProcessor) embedDirect(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrEmbeddingProvider, err)
		}
		return nil
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d",
			core.ErrEmbeddingProvider, len(texts), len(embeddings))
	}
	for _, v := range embeddings {
		if err := core.CheckDimensions(v, bp.dimensions); err != nil {
			return nil, err
		}
	}
	return embeddings, nil
}

// embedCached resolves each text through the cache. A nil entry marks text the
// cache rejected as empty.
func (bp *BatchProcessor) embedCached(ctx context.Context, texts []string) ([][]float32, error) {
	embed := ai.EmbedFunc(bp.embedder)
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		err := RetryWithBackoff(ctx, func() error {
			v, err := bp.cache.GetOrCreate(ctx, text, embed)
			if err != nil {
				return err
			}
			embeddings[i] = v
			return nil
		}, bp.maxRetries, bp.retryBaseDelay)
		switch {
		case errors.Is(err, core.ErrEmptyInput):
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
		}
	}
	return embeddings, nil
}
