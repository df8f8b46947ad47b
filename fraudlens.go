// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fraudlens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/ai/openai"
	"github.com/poiesic/fraudlens/alert"
	"github.com/poiesic/fraudlens/classify"
	"github.com/poiesic/fraudlens/config"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/embedcache"
	"github.com/poiesic/fraudlens/ingestion"
	"github.com/poiesic/fraudlens/mlmodel"
	"github.com/poiesic/fraudlens/reembed"
	"github.com/poiesic/fraudlens/search"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/storage/badger"
	"github.com/poiesic/fraudlens/storage/postgres"
	"github.com/poiesic/fraudlens/textnorm"
)

var (
	// ErrStoresRequired is returned when the article or cache repository is missing.
	ErrStoresRequired = errors.New("article and cache repositories required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)

// Stores are the repositories an Engine works against.
// Checkpoints may be nil; reembedding then cannot resume.
type Stores struct {
	Articles    storage.ArticleRepository
	Cache       storage.QueryCacheRepository
	Checkpoints storage.CheckpointRepository
}

// Engine wires normalization, classification, the embedding cache, search and
// alerting over one store and one embedding provider.
type Engine struct {
	stores     Stores
	provider   ai.AIProvider
	rules      *classify.RuleSet
	classifier *classify.Classifier
	cache      *embedcache.Cache
	searcher   *search.Engine
	alerts     *alert.Evaluator
	pipeline   *ingestion.Pipeline
	predictor  ai.Predictor

	dimensions    int
	minCandidates int
	workers       int
	maxEmbedChars int
	alertConfig   alert.Config

	logger  *slog.Logger
	closers []func() error
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

// WithDimensions sets the embedding length enforced by the cache and search.
// Default is core.EmbeddingDimensions.
func WithDimensions(dimensions int) Option {
	return func(e *Engine) error {
		if dimensions < 1 {
			return fmt.Errorf("%w: dimensions must be positive, got %d", core.ErrInvalidInput, dimensions)
		}
		e.dimensions = dimensions
		return nil
	}
}

// WithRules replaces the built-in fraud rule table.
func WithRules(rules *classify.RuleSet) Option {
	return func(e *Engine) error {
		e.rules = rules
		return nil
	}
}

// WithPredictor enables ML prediction during ingestion.
func WithPredictor(predictor ai.Predictor) Option {
	return func(e *Engine) error {
		e.predictor = predictor
		return nil
	}
}

// WithAlertConfig sets the alert policy.
func WithAlertConfig(cfg alert.Config) Option {
	return func(e *Engine) error {
		e.alertConfig = cfg
		return nil
	}
}

// WithWorkers sets the ingestion worker pool size.
func WithWorkers(n int) Option {
	return func(e *Engine) error {
		e.workers = n
		return nil
	}
}

// WithMaxEmbedChars bounds the text embedded per article.
func WithMaxEmbedChars(n int) Option {
	return func(e *Engine) error {
		e.maxEmbedChars = n
		return nil
	}
}

// WithMinCandidates sets the smallest candidate set requested from the store per query.
func WithMinCandidates(n int) Option {
	return func(e *Engine) error {
		e.minCandidates = n
		return nil
	}
}

// New creates an Engine over already-open stores. The caller keeps ownership of
// the stores and the provider; Close only releases what New created.
func New(stores Stores, provider ai.AIProvider, opts ...Option) (*Engine, error) {
	if stores.Articles == nil || stores.Cache == nil {
		return nil, ErrStoresRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Engine{
		stores:        stores,
		provider:      provider,
		dimensions:    core.EmbeddingDimensions,
		minCandidates: search.DefaultMinCandidates,
		maxEmbedChars: ingestion.DefaultMaxEmbedChars,
		alertConfig:   alert.DefaultConfig(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if err := e.build(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) build() error {
	var err error
	if e.rules == nil {
		if e.rules, err = classify.DefaultRules(); err != nil {
			return err
		}
	}
	if e.classifier, err = classify.NewClassifier(e.rules, classify.WithLogger(e.logger)); err != nil {
		return err
	}
	if e.cache, err = embedcache.New(e.stores.Cache,
		embedcache.WithDimensions(e.dimensions),
		embedcache.WithLogger(e.logger)); err != nil {
		return err
	}
	if e.searcher, err = search.NewEngine(e.stores.Articles,
		search.WithDimensions(e.dimensions),
		search.WithMinCandidates(e.minCandidates),
		search.WithLogger(e.logger)); err != nil {
		return err
	}
	if e.alerts, err = alert.NewEvaluator(e.alertConfig); err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(e.logger),
		ingestion.WithMaxEmbedChars(e.maxEmbedChars),
	}
	if e.workers > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(e.workers))
	}
	if e.predictor != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithPredictor(e.predictor))
	}
	e.pipeline, err = ingestion.NewPipeline(e.stores.Articles, e.classifier, e.cache, e.provider, pipelineOpts...)
	return err
}

// Open builds an Engine from configuration: it opens the configured store,
// creates the OpenAI-compatible provider and loads the optional rule table and
// ML model. Options are applied after the configured values.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	logger := slog.Default()

	base := []Option{
		WithDimensions(cfg.Embedding.Dimensions),
		WithAlertConfig(cfg.AlertPolicy()),
		WithWorkers(cfg.Ingest.Workers),
		WithMaxEmbedChars(cfg.Ingest.MaxEmbedChars),
		WithMinCandidates(cfg.Search.Candidates),
	}
	if cfg.RulesPath != "" {
		rules, err := classify.LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		base = append(base, WithRules(rules))
	}
	if cfg.ModelPath != "" {
		model, err := mlmodel.Load(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		if model.Dimensions() != cfg.Embedding.Dimensions {
			return nil, &core.DimensionError{Expected: cfg.Embedding.Dimensions, Got: model.Dimensions()}
		}
		base = append(base, WithPredictor(model))
	}

	stores, closeStores, err := OpenStores(ctx, cfg.Store, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return nil, err
	}

	provider, err := openai.NewProvider(cfg.AI())
	if err != nil {
		closeStores()
		return nil, err
	}

	e, err := New(stores, provider, append(base, opts...)...)
	if err != nil {
		provider.Close()
		closeStores()
		return nil, err
	}
	e.closers = append(e.closers, closeStores, provider.Close)
	return e, nil
}

// OpenStores opens the store selected by cfg.Driver for vectors of the given
// length. The returned func closes it.
func OpenStores(ctx context.Context, cfg config.StoreConfig, dimensions int, logger *slog.Logger) (Stores, func() error, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		repos, err := postgres.Open(ctx, cfg.DSN, dimensions, logger)
		if err != nil {
			return Stores{}, nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		return Stores{Articles: repos.Articles, Cache: repos.Cache, Checkpoints: repos.Checkpoints}, repos.Close, nil
	case config.DriverBadger, "":
		repos, err := badger.OpenRepositories(cfg.Path, logger)
		if err != nil {
			return Stores{}, nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
		}
		return Stores{Articles: repos.Articles, Cache: repos.Cache, Checkpoints: repos.Checkpoints}, repos.Close, nil
	default:
		return Stores{}, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// Close releases the worker pool and anything Open created.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Release()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Error("error closing engine resource", "err", err)
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Classify normalizes text and runs it through the rule table.
func (e *Engine) Classify(text string) (classify.Result, error) {
	if err := textnorm.Validate(text); err != nil {
		return classify.Result{}, err
	}
	return e.classifier.Classify(textnorm.Normalize(text))
}

// Rules returns the rule table in use.
func (e *Engine) Rules() *classify.RuleSet {
	return e.rules
}

// Query embeds a natural-language query through the cache, ranks stored articles
// against it and flags the results that meet the alert policy.
func (e *Engine) Query(ctx context.Context, text string, filters core.SearchFilters, topK int) ([]*core.SearchResult, error) {
	if err := textnorm.Validate(text); err != nil {
		return nil, err
	}
	vector, err := e.cache.GetOrCreate(ctx, text, ai.EmbedFunc(e.provider.Embedder()))
	if err != nil {
		return nil, err
	}
	results, err := e.searcher.Search(ctx, vector, filters, topK)
	if err != nil {
		return nil, err
	}
	e.alerts.Mark(results)
	return results, nil
}

// QueryPreset runs the canned query registered under name.
func (e *Engine) QueryPreset(ctx context.Context, name string, filters core.SearchFilters, topK int) ([]*core.SearchResult, error) {
	preset, err := search.LookupPreset(name)
	if err != nil {
		return nil, err
	}
	return e.Query(ctx, preset.Query, filters, topK)
}

// Ingest classifies, embeds and stores scraped articles.
func (e *Engine) Ingest(ctx context.Context, raws ...*core.RawArticle) ([]ingestion.Result, error) {
	return e.pipeline.Ingest(ctx, raws...)
}

// Alerts scans the scan most recent articles and returns up to limit that meet
// the alert policy, newest first.
func (e *Engine) Alerts(ctx context.Context, scan, limit int) ([]*core.Article, error) {
	recent, err := e.stores.Articles.GetRecentArticles(ctx, scan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return e.alerts.Filter(recent, limit), nil
}

// AlertReason explains why an article is or is not flagged.
func (e *Engine) AlertReason(article *core.Article) string {
	return e.alerts.Reason(article)
}

// Articles returns articles published in [start, end).
func (e *Engine) Articles(ctx context.Context, start, end time.Time) ([]*core.Article, error) {
	articles, err := e.stores.Articles.GetArticlesByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return articles, nil
}

// Reembedder creates a backfill run over the engine's store, cache and provider.
// cfg may be nil for defaults; its dimensions follow the engine's.
func (e *Engine) Reembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	if cfg == nil {
		cfg = reembed.DefaultConfig()
		cfg.MaxEmbedChars = e.maxEmbedChars
	}
	cfg.Dimensions = e.dimensions
	return reembed.NewReembedder(e.stores.Articles, e.stores.Checkpoints, e.cache, e.provider.Embedder(), cfg, progress)
}
