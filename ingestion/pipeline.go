package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/textnorm"
)

// DefaultMaxEmbedChars bounds the text sent to the embedding provider.
const DefaultMaxEmbedChars = 6000

// Pipeline orchestrates the ingestion and enrichment of scraped articles.
type Pipeline struct {
	articles       storage.ArticleRepository
	pool           *ants.Pool
	classifyProc   processor
	embeddingProc  processor
	predictionProc processor
	classifier     Classifier
	cache          EmbeddingCache
	embedder       ai.Embedder
	predictor      ai.Predictor
	maxEmbedChars  int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithPredictor enables the ML prediction stage.
func WithPredictor(predictor ai.Predictor) Option {
	return func(p *Pipeline) error {
		p.predictor = predictor
		return nil
	}
}

// WithMaxEmbedChars bounds the number of characters embedded per article.
// Values below 1 keep the default of DefaultMaxEmbedChars.
func WithMaxEmbedChars(n int) Option {
	return func(p *Pipeline) error {
		if n > 0 {
			p.maxEmbedChars = n
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	articles storage.ArticleRepository,
	classifier Classifier,
	cache EmbeddingCache,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if articles == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	// Default pool size
	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		articles:      articles,
		pool:          pool,
		classifier:    classifier,
		cache:         cache,
		embedder:      provider.Embedder(),
		maxEmbedChars: DefaultMaxEmbedChars,
		logger:        slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	// Create processors after options are applied (so they get final config)
	p.classifyProc = newClassificationProcessor(p.classifier, p.logger)
	p.embeddingProc = newEmbeddingProcessor(p.cache, p.embedder, p.maxEmbedChars, p.logger)
	if p.predictor != nil {
		p.predictionProc = newPredictionProcessor(p.predictor, p.logger)
	}

	return p, nil
}

// Result reports what happened to one input article.
type Result struct {
	// ID is the content-derived article ID. Zero when the input was rejected before an ID
	// could be derived.
	ID core.ID

	// Article is the enriched article, nil when the input was rejected.
	Article *core.Article

	// Stored is set when the article was written to the store.
	Stored bool

	// Skipped is set when the normalized text was empty; the article is stored
	// unembedded and classified as none.
	Skipped bool

	// Err holds the validation, stage or store failure, if any.
	Err error
}

// Summary totals a batch of results.
type Summary struct {
	Total   int
	Stored  int
	Skipped int
	Failed  int
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Stored {
			s.Stored++
		}
		if r.Skipped {
			s.Skipped++
		}
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

// Ingest normalizes, classifies, embeds and stores raw articles, returning one
// Result per input in input order. Articles are processed concurrently on the
// worker pool, and the call blocks until the whole batch is stored.
//
// Invalid inputs and stage failures are reported per article. An article whose
// embedding failed is still stored, classified but unembedded, so a later
// backfill can complete it. The returned error is non-nil only when the batch
// could not be stored or ctx was cancelled.
func (p *Pipeline) Ingest(ctx context.Context, raws ...*core.RawArticle) ([]Result, error) {
	results := make([]Result, len(raws))
	if len(raws) == 0 {
		return results, nil
	}

	p.logger.Info("ingesting articles", "articles", len(raws))

	var wg sync.WaitGroup
	for i, raw := range raws {
		if err := core.ValidateRawArticle(raw); err != nil {
			results[i].Err = err
			if raw != nil {
				results[i].ID = raw.ArticleID()
			}
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			results[i] = p.processRaw(ctx, raw)
		})
		if err != nil {
			wg.Done()
			results[i] = Result{ID: raw.ArticleID(), Err: fmt.Errorf("failed to schedule article: %w", err)}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	// Store everything that made it through classification
	batch := make([]*core.Article, 0, len(raws))
	for _, r := range results {
		if r.Article != nil {
			batch = append(batch, r.Article)
		}
	}
	if len(batch) > 0 {
		if _, err := p.articles.UpsertArticles(ctx, batch...); err != nil {
			p.logger.Error("error storing articles", "articles", len(batch), "err", err)
			return results, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
	}
	for i := range results {
		if results[i].Article != nil {
			results[i].Stored = true
		}
	}

	summary := Summarize(results)
	p.logger.Info("ingestion complete", "stored", summary.Stored, "skipped", summary.Skipped, "failed", summary.Failed)
	return results, nil
}

// processRaw runs every stage on a single article.
func (p *Pipeline) processRaw(ctx context.Context, raw *core.RawArticle) Result {
	article := &core.Article{
		Id:          raw.ArticleID(),
		Title:       raw.Title,
		PublishedAt: core.CalendarUTC(raw.Date),
		Source:      raw.Source,
		URL:         raw.URL,
		Text:        raw.Text,
	}
	article.NormalizedText = textnorm.Normalize(article.Text)
	result := Result{ID: article.Id}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if err := p.classifyProc.process(ctx, article); err != nil {
		p.logger.Error("error classifying article", "id", article.Id, "err", err)
		result.Err = fmt.Errorf("%s: %w", p.classifyProc.name(), err)
		return result
	}
	result.Article = article

	err := p.embeddingProc.process(ctx, article)
	switch {
	case errors.Is(err, core.ErrEmptyInput):
		result.Skipped = true
		return result
	case err != nil:
		p.logger.Warn("error embedding article", "id", article.Id, "retryable", core.IsRetryable(err), "err", err)
		result.Err = fmt.Errorf("%s: %w", p.embeddingProc.name(), err)
		if !p.carryForward(ctx, article, true) {
			result.Article = nil
		}
		return result
	}

	if p.predictionProc != nil {
		if err := p.predictionProc.process(ctx, article); err != nil {
			p.logger.Warn("error predicting fraud type", "id", article.Id, "err", err)
			result.Err = fmt.Errorf("%s: %w", p.predictionProc.name(), err)
			if !p.carryForward(ctx, article, false) {
				result.Article = nil
			}
		}
	}
	return result
}

// carryForward copies the stored prediction, and the stored embedding when
// withEmbedding is set, onto article after a failed stage, so that resubmitting
// unchanged text never erases them. It reports false when the stored record could
// not be read; the article must then not be written.
func (p *Pipeline) carryForward(ctx context.Context, article *core.Article, withEmbedding bool) bool {
	stored, err := p.articles.GetArticle(ctx, article.Id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return true
	case err != nil:
		p.logger.Warn("error loading stored article", "id", article.Id, "err", err)
		return false
	case stored.NormalizedText != article.NormalizedText:
		return true
	}
	if withEmbedding {
		article.Embedding = stored.Embedding
	}
	article.Prediction = stored.Prediction
	return true
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
