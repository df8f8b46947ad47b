package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func testArticle(url string, published time.Time, embedding []float32) *core.Article {
	return &core.Article{
		Id:          core.IDFromContent(url),
		Title:       "Article " + url,
		PublishedAt: published,
		Source:      core.SourceNewsroom,
		URL:         url,
		Text:        "text for " + url,
		Embedding:   embedding,
	}
}

func TestUpsertArticles(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	article := testArticle("https://example.com/a", published, []float32{1, 0, 0})
	added, err := repos.Articles.UpsertArticles(ctx, article)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.False(t, added[0].InsertedAt.IsZero())
	assert.False(t, added[0].UpdatedAt.IsZero())

	got, err := repos.Articles.GetArticle(ctx, article.Id)
	require.NoError(t, err)
	assert.Equal(t, article.Title, got.Title)
	assert.Equal(t, article.Embedding, got.Embedding)
	assert.True(t, got.PublishedAt.Equal(published))

	t.Run("resubmission keeps one row and InsertedAt", func(t *testing.T) {
		insertedAt := got.InsertedAt
		again := testArticle("https://example.com/a", published, []float32{0, 1, 0})
		again.Summary = "updated"
		_, err := repos.Articles.UpsertArticles(ctx, again)
		require.NoError(t, err)

		got, err := repos.Articles.GetArticle(ctx, article.Id)
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Summary)
		assert.True(t, got.InsertedAt.Equal(insertedAt))

		ids, err := repos.Articles.ListArticleIDs(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("zero id rejected", func(t *testing.T) {
		_, err := repos.Articles.UpsertArticles(ctx, &core.Article{Title: "no id"})
		assert.ErrorIs(t, err, storage.ErrMissingID)
	})
}

func TestGetArticle_NotFound(t *testing.T) {
	repos := newTestRepositories(t)

	_, err := repos.Articles.GetArticle(context.Background(), core.ID(404))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetArticles_OrderAndMissing(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := testArticle("https://example.com/a", now, nil)
	b := testArticle("https://example.com/b", now, nil)
	_, err := repos.Articles.UpsertArticles(ctx, a, b)
	require.NoError(t, err)

	got, err := repos.Articles.GetArticles(ctx, b.Id, core.ID(1), a.Id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.Id, got[0].Id)
	assert.Equal(t, a.Id, got[1].Id)
}

func TestArticlesByDate(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	base := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	articles := []*core.Article{
		testArticle("https://example.com/1", base, nil),
		testArticle("https://example.com/2", base.AddDate(0, 1, 0), nil),
		testArticle("https://example.com/3", base.AddDate(0, 2, 0), nil),
	}
	_, err := repos.Articles.UpsertArticles(ctx, articles...)
	require.NoError(t, err)

	t.Run("date range is half open", func(t *testing.T) {
		got, err := repos.Articles.GetArticlesByDateRange(ctx, base, base.AddDate(0, 2, 0))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, articles[0].Id, got[0].Id)
		assert.Equal(t, articles[1].Id, got[1].Id)
	})

	t.Run("recent newest first", func(t *testing.T) {
		got, err := repos.Articles.GetRecentArticles(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, articles[2].Id, got[0].Id)
		assert.Equal(t, articles[1].Id, got[1].Id)
	})

	t.Run("moving an article updates the index", func(t *testing.T) {
		moved := testArticle("https://example.com/1", base.AddDate(1, 0, 0), nil)
		_, err := repos.Articles.UpsertArticles(ctx, moved)
		require.NoError(t, err)

		got, err := repos.Articles.GetArticlesByDateRange(ctx, base, base.AddDate(0, 1, 1))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, articles[1].Id, got[0].Id)

		recent, err := repos.Articles.GetRecentArticles(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, moved.Id, recent[0].Id)
	})
}

func TestListArticleIDs(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []core.ID{30, 10, 20} {
		_, err := repos.Articles.UpsertArticles(ctx, &core.Article{Id: id, Title: "t", PublishedAt: now})
		require.NoError(t, err)
	}

	ids, err := repos.Articles.ListArticleIDs(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{10, 20, 30}, ids)

	ids, err = repos.Articles.ListArticleIDs(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, []core.ID{20}, ids)

	ids, err = repos.Articles.ListArticleIDs(ctx, 30, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSimilaritySearch(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	y2023 := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	y2024 := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	exact := testArticle("https://example.com/exact", y2023, []float32{1, 0, 0})
	near := testArticle("https://example.com/near", y2024, []float32{1, 1, 0})
	far := testArticle("https://example.com/far", y2023, []float32{0, 0, 1})
	bare := testArticle("https://example.com/bare", y2023, nil)
	_, err := repos.Articles.UpsertArticles(ctx, exact, near, far, bare)
	require.NoError(t, err)

	query := []float32{1, 0, 0}

	t.Run("ordered by score", func(t *testing.T) {
		matches, err := repos.Articles.SimilaritySearch(ctx, query, core.SearchFilters{}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, exact.Id, matches[0].ArticleId)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
		assert.Equal(t, near.Id, matches[1].ArticleId)
		assert.InDelta(t, 0.7071, matches[1].Score, 1e-4)
		assert.Equal(t, far.Id, matches[2].ArticleId)
	})

	t.Run("threshold", func(t *testing.T) {
		matches, err := repos.Articles.SimilaritySearch(ctx, query, core.SearchFilters{MinSimilarity: core.Threshold(0.5)}, 10)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("year", func(t *testing.T) {
		matches, err := repos.Articles.SimilaritySearch(ctx, query, core.SearchFilters{Year: 2023}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, exact.Id, matches[0].ArticleId)
		assert.Equal(t, far.Id, matches[1].ArticleId)
	})

	t.Run("limit", func(t *testing.T) {
		matches, err := repos.Articles.SimilaritySearch(ctx, query, core.SearchFilters{}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, exact.Id, matches[0].ArticleId)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := repos.Articles.SimilaritySearch(ctx, []float32{1, 0}, core.SearchFilters{}, 10)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := repos.Articles.SimilaritySearch(ctx, query, core.SearchFilters{}, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestSimilaritySearch_Empty(t *testing.T) {
	repos := newTestRepositories(t)

	matches, err := repos.Articles.SimilaritySearch(context.Background(), []float32{1, 0}, core.SearchFilters{}, 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}
