package reembed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/fraudlens/ai/mock"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/embedcache"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/storage/badger"
	"github.com/stretchr/testify/require"
)

const testDims = 8

var words = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

func newRepos(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newEmbedder() *mock.MockEmbedder {
	e := mock.NewMockEmbedder()
	e.Dimensions = testDims
	return e
}

func newCache(t *testing.T, repos *badger.Repositories) *embedcache.Cache {
	t.Helper()
	cache, err := embedcache.New(repos.Cache, embedcache.WithDimensions(testDims))
	require.NoError(t, err)
	return cache
}

func articleText(id int) string {
	return fmt.Sprintf("Article %s reports unauthorized ACH transfers", words[id%len(words)])
}

// seed stores articles with IDs 1..n. IDs listed in embedded get a marker vector.
func seed(t *testing.T, repos *badger.Repositories, n int, embedded ...int) {
	t.Helper()
	marked := make(map[int]bool, len(embedded))
	for _, id := range embedded {
		marked[id] = true
	}

	articles := make([]*core.Article, 0, n)
	for i := 1; i <= n; i++ {
		a := &core.Article{
			Id:          core.ID(i),
			Title:       fmt.Sprintf("Article %d", i),
			PublishedAt: time.Date(2024, time.January, i, 0, 0, 0, 0, time.UTC),
			Source:      core.SourceNewsroom,
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Text:        articleText(i),
			Classified:  true,
		}
		if marked[i] {
			a.Embedding = markerVector()
		}
		articles = append(articles, a)
	}
	_, err := repos.Articles.UpsertArticles(context.Background(), articles...)
	require.NoError(t, err)
}

func markerVector() []float32 {
	v := make([]float32, testDims)
	v[0] = 1
	return v
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.ReportInterval = 1
	cfg.MaxRetries = 1
	cfg.RetryDelay = time.Millisecond
	cfg.Dimensions = testDims
	return cfg
}

func loadAll(t *testing.T, repo storage.ArticleRepository, ids ...core.ID) []*core.Article {
	t.Helper()
	articles, err := repo.GetArticles(context.Background(), ids...)
	require.NoError(t, err)
	require.Len(t, articles, len(ids))
	return articles
}
