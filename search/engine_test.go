package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
	"github.com/poiesic/fraudlens/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

// stubStore returns fixed similarity matches and serves articles from a map.
type stubStore struct {
	storage.ArticleRepository

	matches     []core.SimilarityMatch
	articles    map[core.ID]*core.Article
	searchErr   error
	getErr      error
	lastLimit   int
	lastFilters core.SearchFilters
}

func newStubStore() *stubStore {
	return &stubStore{articles: make(map[core.ID]*core.Article)}
}

func (s *stubStore) add(article *core.Article, score float32) {
	s.articles[article.Id] = article
	s.matches = append(s.matches, core.SimilarityMatch{ArticleId: article.Id, Score: score})
}

func (s *stubStore) SimilaritySearch(ctx context.Context, vector []float32, filters core.SearchFilters, limit int) ([]core.SimilarityMatch, error) {
	s.lastLimit = limit
	s.lastFilters = filters
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	out := s.matches
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	var out []*core.Article
	for _, id := range ids {
		if a, ok := s.articles[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func article(url string, year int, text string) *core.Article {
	return &core.Article{
		Id:             core.IDFromContent(url),
		Title:          url,
		URL:            url,
		PublishedAt:    time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
		Text:           text,
		NormalizedText: text,
	}
}

func queryVector() []float32 {
	return []float32{1, 0, 0, 0}
}

func newTestEngine(t *testing.T, store storage.ArticleRepository) *Engine {
	t.Helper()
	e, err := NewEngine(store, WithDimensions(testDims))
	require.NoError(t, err)
	return e
}

func urls(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Article.URL
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		_, err := NewEngine(nil)
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("defaults", func(t *testing.T) {
		e, err := NewEngine(newStubStore())
		require.NoError(t, err)
		assert.Equal(t, core.EmbeddingDimensions, e.Dimensions())
		assert.Equal(t, DefaultMinCandidates, e.minCandidates)
	})

	t.Run("with custom logger", func(t *testing.T) {
		_, err := NewEngine(newStubStore(), WithLogger(slog.Default()))
		require.NoError(t, err)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		e, err := NewEngine(newStubStore(), WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, e.logger)
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		_, err := NewEngine(newStubStore(), WithDimensions(0))
		assert.Equal(t, ErrInvalidDimensions, err)
	})

	t.Run("min candidates", func(t *testing.T) {
		e, err := NewEngine(newStubStore(), WithMinCandidates(10))
		require.NoError(t, err)
		assert.Equal(t, 10, e.minCandidates)

		e, err = NewEngine(newStubStore(), WithMinCandidates(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultMinCandidates, e.minCandidates)
	})
}

func TestSearch_SeededScenario(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/zelle", 2024, "zelle transfers"), 0.91)
	store.add(article("https://example.com/ach", 2024, "ach errors"), 0.83)
	store.add(article("https://example.com/other", 2024, "annual report"), 0.79)
	e := newTestEngine(t, store)

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{MinSimilarity: core.Threshold(0.8)}, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"https://example.com/zelle", "https://example.com/ach"}, urls(results))
	assert.Equal(t, float32(0.91), results[0].Score)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.False(t, results[0].Alert)
}

func TestSearch_CandidateCount(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)
	ctx := context.Background()

	_, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 2)
	require.NoError(t, err)
	assert.Equal(t, 100, store.lastLimit)

	_, err = e.Search(ctx, queryVector(), core.SearchFilters{}, 50)
	require.NoError(t, err)
	assert.Equal(t, 200, store.lastLimit)
}

func TestSearch_PassesFiltersToStore(t *testing.T) {
	store := newStubStore()
	e := newTestEngine(t, store)

	filters := core.SearchFilters{Year: 2023, Keyword: "zelle", MinSimilarity: core.Threshold(0.5)}
	_, err := e.Search(context.Background(), queryVector(), filters, 5)
	require.NoError(t, err)
	assert.Equal(t, filters, store.lastFilters)
}

func TestSearch_YearFilter(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/a", 2024, "a"), 0.9)
	store.add(article("https://example.com/b", 2023, "b"), 0.8)
	store.add(article("https://example.com/c", 2023, "c"), 0.7)
	e := newTestEngine(t, store)

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Year: 2023}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/b", "https://example.com/c"}, urls(results))
	for _, r := range results {
		assert.Equal(t, 2023, r.Article.PublishedAt.Year())
	}
}

func TestSearch_KeywordFilter(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/a", 2024, "Unauthorized Zelle transfers"), 0.9)
	store.add(article("https://example.com/b", 2024, "ACH errors"), 0.8)
	raw := article("https://example.com/c", 2024, "Bank settles <b>ZELLE</b> dispute")
	raw.NormalizedText = ""
	store.add(raw, 0.7)
	e := newTestEngine(t, store)

	t.Run("case-insensitive", func(t *testing.T) {
		results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Keyword: "  ZELLE "}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/c"}, urls(results))
	})

	t.Run("no match", func(t *testing.T) {
		results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Keyword: "mortgage"}, 10)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("blank keyword disables the filter", func(t *testing.T) {
		results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Keyword: "   "}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("markup and url keywords still filter", func(t *testing.T) {
		for _, keyword := range []string{"www.consumerfinance.gov", "https://consumerfinance.gov", "***", "<i>"} {
			results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Keyword: keyword}, 10)
			require.NoError(t, err)
			assert.Empty(t, results, "keyword %q", keyword)
		}
	})

	t.Run("markup keyword matches raw text", func(t *testing.T) {
		results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{Keyword: "<B>"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/c"}, urls(results))
	})
}

func TestKeywordMatcher(t *testing.T) {
	a := &core.Article{
		Text:           "Details at https://www.consumerfinance.gov/enforcement about <b>Zelle</b>",
		NormalizedText: "details at about zelle",
	}
	tests := []struct {
		keyword string
		want    bool
	}{
		{"", true},
		{"zelle", true},
		{"  DETAILS at ", true},
		{"www.consumerfinance.gov", true},
		{"https://www.consumerfinance.gov/enforcement", true},
		{"www.example.com", false},
		{"***", false},
		{"<b>", true},
		{"<i>", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newKeywordMatcher(tt.keyword).matches(a), "keyword %q", tt.keyword)
	}
}

func TestSearch_Ordering(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/low", 2024, "x"), 0.2)
	store.add(article("https://example.com/tie1", 2024, "x"), 0.5)
	store.add(article("https://example.com/high", 2024, "x"), 0.9)
	store.add(article("https://example.com/tie2", 2024, "x"), 0.5)
	e := newTestEngine(t, store)

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/high",
		"https://example.com/tie1",
		"https://example.com/tie2",
		"https://example.com/low",
	}, urls(results))
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
}

func TestSearch_MinSimilarityBoundary(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/at", 2024, "x"), 0.8)
	store.add(article("https://example.com/below", 2024, "x"), 0.7999)
	e := newTestEngine(t, store)

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{MinSimilarity: core.Threshold(0.8)}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/at"}, urls(results))
}

func TestSearch_MissingArticlesDropped(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/a", 2024, "x"), 0.9)
	store.matches = append(store.matches, core.SimilarityMatch{ArticleId: 42, Score: 0.8})
	e := newTestEngine(t, store)

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a"}, urls(results))
}

func TestSearch_EmptyStore(t *testing.T) {
	e := newTestEngine(t, newStubStore())

	results, err := e.Search(context.Background(), queryVector(), core.SearchFilters{}, 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("non-positive topK", func(t *testing.T) {
		e := newTestEngine(t, newStubStore())
		for _, k := range []int{0, -1} {
			_, err := e.Search(ctx, queryVector(), core.SearchFilters{}, k)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		store := newStubStore()
		e := newTestEngine(t, store)
		_, err := e.Search(ctx, []float32{1, 0}, core.SearchFilters{}, 5)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)

		var dimErr *core.DimensionError
		require.True(t, errors.As(err, &dimErr))
		assert.Equal(t, testDims, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Got)
		assert.Zero(t, store.lastLimit, "store must not be queried")
	})

	t.Run("store failure", func(t *testing.T) {
		store := newStubStore()
		store.searchErr = errors.New("connection refused")
		e := newTestEngine(t, store)
		_, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 5)
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
		assert.True(t, core.IsRetryable(err))
	})

	t.Run("store dimension error passes through", func(t *testing.T) {
		store := newStubStore()
		store.searchErr = &core.DimensionError{Expected: testDims, Got: 3}
		e := newTestEngine(t, store)
		_, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 5)
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
		assert.NotErrorIs(t, err, core.ErrStoreUnavailable)
	})

	t.Run("hydration failure", func(t *testing.T) {
		store := newStubStore()
		store.add(article("https://example.com/a", 2024, "x"), 0.9)
		store.getErr = errors.New("timeout")
		e := newTestEngine(t, store)
		_, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 5)
		assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	})
}

type recordingMonitor struct {
	candidates int
	matches    int
	retrieved  int
	dropped    map[DropReason]int
	finished   int
}

func (m *recordingMonitor) Start(_ core.SearchFilters, _, candidates int) {
	m.candidates = candidates
}

func (m *recordingMonitor) AfterSimilaritySearch(matches []core.SimilarityMatch) {
	m.matches = len(matches)
}

func (m *recordingMonitor) AfterArticleRetrieval(articles []*core.Article) {
	m.retrieved = len(articles)
}

func (m *recordingMonitor) Dropped(_ *core.Article, _ float32, reason DropReason) {
	m.dropped[reason]++
}

func (m *recordingMonitor) Finish(results []*core.SearchResult) {
	m.finished = len(results)
}

func TestSearchWithMonitor(t *testing.T) {
	store := newStubStore()
	store.add(article("https://example.com/a", 2023, "zelle"), 0.9)
	store.add(article("https://example.com/b", 2024, "zelle"), 0.85)
	store.add(article("https://example.com/c", 2023, "ach"), 0.8)
	store.add(article("https://example.com/d", 2023, "zelle"), 0.1)
	e := newTestEngine(t, store)

	monitor := &recordingMonitor{dropped: make(map[DropReason]int)}
	filters := core.SearchFilters{Year: 2023, Keyword: "zelle", MinSimilarity: core.Threshold(0.5)}
	results, err := e.SearchWithMonitor(context.Background(), queryVector(), filters, 3, monitor)
	require.NoError(t, err)

	assert.Len(t, results, 1)
	assert.Equal(t, 100, monitor.candidates)
	assert.Equal(t, 4, monitor.matches)
	assert.Equal(t, 4, monitor.retrieved)
	assert.Equal(t, map[DropReason]int{DropYear: 1, DropKeyword: 1, DropSimilarity: 1}, monitor.dropped)
	assert.Equal(t, 1, monitor.finished)
}

func TestSearch_BadgerStore(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	exact := article("https://example.com/exact", 2023, "unauthorized zelle transfer")
	exact.Embedding = []float32{1, 0, 0, 0}
	near := article("https://example.com/near", 2023, "ach error resolution")
	near.Embedding = []float32{1, 1, 0, 0}
	far := article("https://example.com/far", 2024, "mortgage servicing")
	far.Embedding = []float32{0, 1, 0, 0}
	unembedded := article("https://example.com/none", 2023, "no embedding yet")
	_, err = repos.Articles.UpsertArticles(ctx, exact, near, far, unembedded)
	require.NoError(t, err)

	e := newTestEngine(t, repos.Articles)

	t.Run("ranked by cosine similarity", func(t *testing.T) {
		results, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://example.com/exact",
			"https://example.com/near",
			"https://example.com/far",
		}, urls(results))
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
		assert.InDelta(t, 0.0, results[2].Score, 1e-6)
	})

	t.Run("year and threshold", func(t *testing.T) {
		filters := core.SearchFilters{Year: 2023, MinSimilarity: core.Threshold(0.8)}
		results, err := e.Search(ctx, queryVector(), filters, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/exact"}, urls(results))
	})

	t.Run("top k", func(t *testing.T) {
		results, err := e.Search(ctx, queryVector(), core.SearchFilters{}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 1, results[0].Rank)
	})
}
