package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

const (
	// DefaultMinCandidates is the smallest candidate set requested from the store.
	DefaultMinCandidates = 100

	// overfetch multiplies topK so local filtering still leaves enough results.
	overfetch = 4
)

// Engine ranks stored articles by cosine similarity to a query vector.
// It only reads from the store and is safe for concurrent use.
type Engine struct {
	store         storage.ArticleRepository
	dimensions    int
	minCandidates int
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithDimensions sets the required query vector length.
// Default is core.EmbeddingDimensions.
func WithDimensions(dimensions int) Option {
	return func(e *Engine) error {
		if dimensions < 1 {
			return ErrInvalidDimensions
		}
		e.dimensions = dimensions
		return nil
	}
}

// WithMinCandidates sets the smallest candidate set requested from the store.
// Values below 1 keep the default.
func WithMinCandidates(n int) Option {
	return func(e *Engine) error {
		if n > 0 {
			e.minCandidates = n
		}
		return nil
	}
}

// NewEngine creates a new search engine over store.
func NewEngine(store storage.ArticleRepository, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	e := &Engine{
		store:         store,
		dimensions:    core.EmbeddingDimensions,
		minCandidates: DefaultMinCandidates,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "search")

	return e, nil
}

// Dimensions returns the query vector length the engine enforces.
func (e *Engine) Dimensions() int {
	return e.dimensions
}

// Search returns up to topK articles ranked by similarity to queryVector.
// Zero matches is not an error; the result is then an empty, non-nil slice.
func (e *Engine) Search(ctx context.Context, queryVector []float32, filters core.SearchFilters, topK int) ([]*core.SearchResult, error) {
	return e.SearchWithMonitor(ctx, queryVector, filters, topK, nil)
}

// SearchWithMonitor is Search with a monitor receiving callbacks at each stage.
func (e *Engine) SearchWithMonitor(ctx context.Context, queryVector []float32, filters core.SearchFilters, topK int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", core.ErrInvalidInput, topK)
	}
	if err := core.CheckDimensions(queryVector, e.dimensions); err != nil {
		return nil, err
	}

	candidates := max(e.minCandidates, topK*overfetch)
	monitor.Start(filters, topK, candidates)

	// 1. Candidate set from the store
	matches, err := e.store.SimilaritySearch(ctx, queryVector, filters, candidates)
	if err != nil {
		e.logger.Error("similarity search failed", "candidates", candidates, "err", err)
		if errors.Is(err, core.ErrDimensionMismatch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	monitor.AfterSimilaritySearch(matches)
	if len(matches) == 0 {
		monitor.Finish([]*core.SearchResult{})
		return []*core.SearchResult{}, nil
	}

	// 2. Hydrate
	ids := make([]core.ID, len(matches))
	for i, m := range matches {
		ids[i] = m.ArticleId
	}
	articles, err := e.store.GetArticles(ctx, ids...)
	if err != nil {
		e.logger.Error("article retrieval failed", "count", len(ids), "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	monitor.AfterArticleRetrieval(articles)

	byID := make(map[core.ID]*core.Article, len(articles))
	for _, a := range articles {
		byID[a.Id] = a
	}

	// 3. Local filters, in store order
	keyword := newKeywordMatcher(filters.Keyword)
	results := make([]*core.SearchResult, 0, len(matches))
	for _, m := range matches {
		article, ok := byID[m.ArticleId]
		if !ok {
			continue
		}
		if filters.Year != 0 && article.PublishedAt.Year() != filters.Year {
			monitor.Dropped(article, m.Score, DropYear)
			continue
		}
		if !keyword.matches(article) {
			monitor.Dropped(article, m.Score, DropKeyword)
			continue
		}
		if filters.MinSimilarity != nil && m.Score < *filters.MinSimilarity {
			monitor.Dropped(article, m.Score, DropSimilarity)
			continue
		}
		results = append(results, &core.SearchResult{
			Article: article,
			Score:   m.Score,
		})
	}

	// 4. Order, truncate, rank
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	for i, r := range results {
		r.Rank = i + 1
	}

	e.logger.Debug("search complete", "candidates", len(matches), "results", len(results), "top_k", topK)
	monitor.Finish(results)

	return results, nil
}
