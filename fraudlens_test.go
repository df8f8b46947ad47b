package fraudlens

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/fraudlens/ai/mock"
	"github.com/poiesic/fraudlens/config"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/reembed"
	"github.com/poiesic/fraudlens/search"
	"github.com/poiesic/fraudlens/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

// topicEmbedder maps text onto one axis per topic so rankings are predictable.
func topicEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimensions = testDims
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		switch {
		case strings.Contains(text, "zelle"):
			return []float32{1, 0, 0, 0}, nil
		case strings.Contains(text, "bitcoin"), strings.Contains(text, "crypto"):
			return []float32{0, 1, 0, 0}, nil
		case strings.Contains(text, "debt"):
			return []float32{0, 0, 1, 0}, nil
		default:
			return []float32{0, 0, 0, 1}, nil
		}
	}
	return e
}

func newTestEngine(t *testing.T) (*Engine, *mock.MockEmbedder) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	embedder := topicEmbedder()
	e, err := New(
		Stores{Articles: repos.Articles, Cache: repos.Cache, Checkpoints: repos.Checkpoints},
		mock.NewMockProviderWithEmbedder(embedder),
		WithDimensions(testDims),
		WithWorkers(2),
	)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e, embedder
}

func sampleArticles() []*core.RawArticle {
	return []*core.RawArticle{
		{
			Title:  "Bank ordered to repay Zelle victims",
			Date:   time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Source: core.SourceNewsroom,
			URL:    "https://example.com/zelle",
			Text:   "The Bureau found unauthorized transfers via Zelle went unresolved.",
		},
		{
			Title:  "Bitcoin scam warning",
			Date:   time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
			Source: core.SourceNewsroom,
			URL:    "https://example.com/bitcoin",
			Text:   "Regulators warned of a bitcoin scam.",
		},
		{
			Title:  "Collector fined",
			Date:   time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			Source: core.SourceNewsroom,
			URL:    "https://example.com/debt",
			Text:   "Debt collectors harassed borrowers with repeated calls.",
		},
	}
}

func ingestSamples(t *testing.T, e *Engine) {
	t.Helper()
	results, err := e.Ingest(context.Background(), sampleArticles()...)
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.True(t, r.Stored)
	}
}

func TestNew(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	provider := mock.NewMockProvider()

	_, err = New(Stores{}, provider)
	assert.Equal(t, ErrStoresRequired, err)

	_, err = New(Stores{Articles: repos.Articles, Cache: repos.Cache}, nil)
	assert.Equal(t, ErrAIProviderRequired, err)

	_, err = New(Stores{Articles: repos.Articles, Cache: repos.Cache}, provider, WithDimensions(0))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	e, err := New(Stores{Articles: repos.Articles, Cache: repos.Cache}, provider, WithLogger(nil))
	require.NoError(t, err)
	assert.NoError(t, e.Close())
	assert.False(t, provider.(*mock.MockProvider).Closed(), "New does not own the provider")
}

func TestEngine_Classify(t *testing.T) {
	e, _ := newTestEngine(t)

	result, err := e.Classify("The Bureau filed a complaint alleging <b>unauthorized transfers</b> via Zelle.")
	require.NoError(t, err)
	assert.Equal(t, core.FraudType("reg_e"), result.Category)
	assert.Subset(t, result.Tags, []string{"unauthorized_transfer", "zelle_fraud"})

	result, err = e.Classify("")
	require.NoError(t, err)
	assert.Equal(t, core.FraudTypeNone, result.Category)
	assert.Empty(t, result.Tags)

	_, err = e.Classify("bad \x00 bytes")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.NotEmpty(t, e.Rules().Explanation("reg_e"))
}

func TestEngine_Query(t *testing.T) {
	e, embedder := newTestEngine(t)
	ingestSamples(t, e)
	ctx := context.Background()

	results, err := e.Query(ctx, "Zelle payment scams", core.SearchFilters{}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/zelle", results[0].Article.URL)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.True(t, results[0].Alert)

	calls := embedder.CallCount()
	_, err = e.Query(ctx, "  zelle   PAYMENT scams ", core.SearchFilters{}, 1)
	require.NoError(t, err)
	assert.Equal(t, calls, embedder.CallCount(), "repeated query must hit the cache")

	t.Run("filters", func(t *testing.T) {
		results, err := e.Query(ctx, "zelle", core.SearchFilters{Year: 2023}, 3)
		require.NoError(t, err)
		for _, r := range results {
			assert.Equal(t, 2023, r.Article.PublishedAt.Year())
		}

		results, err = e.Query(ctx, "zelle", core.SearchFilters{MinSimilarity: core.Threshold(0.5)}, 3)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "https://example.com/zelle", results[0].Article.URL)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := e.Query(ctx, "   ", core.SearchFilters{}, 3)
		assert.ErrorIs(t, err, core.ErrEmptyInput)

		_, err = e.Query(ctx, "bad \x01", core.SearchFilters{}, 3)
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = e.Query(ctx, "zelle", core.SearchFilters{}, 0)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestEngine_QueryPreset(t *testing.T) {
	e, _ := newTestEngine(t)
	ingestSamples(t, e)

	results, err := e.QueryPreset(context.Background(), "crypto", core.SearchFilters{}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/bitcoin", results[0].Article.URL)
	assert.Equal(t, core.FraudType("crypto"), results[0].Article.FraudType)
	assert.True(t, results[0].Alert)

	_, err = e.QueryPreset(context.Background(), "nope", core.SearchFilters{}, 1)
	assert.ErrorIs(t, err, search.ErrUnknownPreset)
}

func TestEngine_Alerts(t *testing.T) {
	e, _ := newTestEngine(t)
	ingestSamples(t, e)

	alerts, err := e.Alerts(context.Background(), 100, 10)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "https://example.com/zelle", alerts[0].URL, "newest first")
	assert.Equal(t, "https://example.com/bitcoin", alerts[1].URL)
	assert.NotEmpty(t, e.AlertReason(alerts[0]))

	limited, err := e.Alerts(context.Background(), 100, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEngine_Articles(t *testing.T) {
	e, _ := newTestEngine(t)
	ingestSamples(t, e)

	articles, err := e.Articles(context.Background(),
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.Equal(t, 2024, a.PublishedAt.Year())
	}
}

func TestEngine_Reembedder(t *testing.T) {
	e, _ := newTestEngine(t)
	ingestSamples(t, e)

	cfg := reembed.DefaultConfig()
	cfg.MissingOnly = true
	r, err := e.Reembedder(cfg, nil)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Visited)
	assert.Zero(t, stats.Embedded, "every ingested article is already embedded")
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()

	stores, closeFn, err := OpenStores(ctx, config.StoreConfig{Driver: config.DriverBadger, Path: filepath.Join(t.TempDir(), "db")}, 4, nil)
	require.NoError(t, err)
	assert.NotNil(t, stores.Articles)
	assert.NotNil(t, stores.Cache)
	assert.NotNil(t, stores.Checkpoints)
	assert.NoError(t, closeFn())

	_, _, err = OpenStores(ctx, config.StoreConfig{Driver: "mysql"}, 4, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "db")
	cfg.Embedding.APIKey = "sk-test"

	e, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, core.EmbeddingDimensions, e.dimensions)
	assert.NoError(t, e.Close())

	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = Open(context.Background(), cfg)
	assert.Error(t, err)
}
