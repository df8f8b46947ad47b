package ingestion

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/embedcache"
	"github.com/poiesic/fraudlens/textnorm"
)

// embeddingProcessor embeds normalized article text through the embedding cache.
// Empty text yields core.ErrEmptyInput and leaves the article without an embedding.
type embeddingProcessor struct {
	cache    EmbeddingCache
	embed    embedcache.EmbedFunc
	maxChars int
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(cache EmbeddingCache, embedder ai.Embedder, maxChars int, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		cache:    cache,
		embed:    ai.EmbedFunc(embedder),
		maxChars: maxChars,
		logger:   logger.With("processor", "embeddings"),
	}
}

func (ep *embeddingProcessor) name() string {
	return "embedding"
}

func (ep *embeddingProcessor) process(ctx context.Context, article *core.Article) error {
	text := textnorm.Truncate(article.NormalizedText, ep.maxChars)

	vector, err := ep.cache.GetOrCreate(ctx, text, ep.embed)
	if err != nil {
		return err
	}
	article.Embedding = vector

	ep.logger.Debug("embedded article", "id", article.Id, "chars", utf8.RuneCountInString(text))
	return nil
}
