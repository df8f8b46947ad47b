package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/poiesic/fraudlens/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarityQuery(t *testing.T) {
	vector := []float32{1, 0.5}

	t.Run("no filters", func(t *testing.T) {
		query, args, err := similarityQuery(vector, core.SearchFilters{}, 100)
		require.NoError(t, err)
		assert.Contains(t, query, "1 - (embedding <=> $1::vector) AS similarity")
		assert.Contains(t, query, "WHERE embedding IS NOT NULL")
		assert.Contains(t, query, "ORDER BY embedding <=> $2::vector ASC, id ASC")
		assert.Contains(t, query, "LIMIT 100")
		assert.Equal(t, []any{"[1,0.5]", "[1,0.5]"}, args)
	})

	t.Run("year and threshold", func(t *testing.T) {
		filters := core.SearchFilters{Year: 2023, MinSimilarity: core.Threshold(0.8)}
		query, args, err := similarityQuery(vector, filters, 8)
		require.NoError(t, err)
		assert.Contains(t, query, "EXTRACT(YEAR FROM published_at AT TIME ZONE 'UTC') = $2")
		assert.Contains(t, query, "1 - (embedding <=> $3::vector) >= $4")
		assert.Contains(t, query, "ORDER BY embedding <=> $5::vector ASC, id ASC")
		require.Len(t, args, 5)
		assert.Equal(t, 2023, args[1])
		assert.Equal(t, float32(0.8), args[3])
	})

	t.Run("keyword is left to the caller", func(t *testing.T) {
		query, _, err := similarityQuery(vector, core.SearchFilters{Keyword: "zelle"}, 10)
		require.NoError(t, err)
		assert.NotContains(t, strings.ToLower(query), "zelle")
	})
}

func TestUpsertArticleQuery(t *testing.T) {
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	t.Run("without embedding or prediction", func(t *testing.T) {
		article := &core.Article{Id: core.ID(5), Title: "t", PublishedAt: now, Source: core.SourceBlog}
		query, args, err := upsertArticleQuery(article, now)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(query, "INSERT INTO articles"))
		assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET")
		assert.Contains(t, query, "RETURNING inserted_at")
		assert.NotContains(t, query, "inserted_at = EXCLUDED.inserted_at")
		require.Len(t, args, 16)
		assert.Equal(t, encodeID(core.ID(5)), args[0])
		assert.Equal(t, "blog", args[3])
		assert.Equal(t, []string{}, args[8])
		assert.Nil(t, args[11])
		assert.Nil(t, args[12])
		assert.Nil(t, args[13])
		assert.Equal(t, now, args[14])
	})

	t.Run("with embedding and prediction", func(t *testing.T) {
		article := &core.Article{
			Id:          core.ID(6),
			PublishedAt: now,
			FraudTags:   []string{"zelle_fraud"},
			Embedding:   []float32{0.25, -1},
			Prediction:  &core.Prediction{Category: "reg_e", Confidence: 0.9},
			InsertedAt:  now.Add(-time.Hour),
		}
		query, args, err := upsertArticleQuery(article, now)
		require.NoError(t, err)

		assert.Contains(t, query, "$12::vector")
		assert.Equal(t, []string{"zelle_fraud"}, args[8])
		assert.Equal(t, "[0.25,-1]", args[11])
		assert.Equal(t, "reg_e", args[12])
		assert.Equal(t, 0.9, args[13])
		assert.Equal(t, now.Add(-time.Hour), args[14])
	})
}

func TestSelectQueries(t *testing.T) {
	t.Run("by id", func(t *testing.T) {
		query, args, err := selectArticlesByIDQuery([]core.ID{1, 2})
		require.NoError(t, err)
		assert.Contains(t, query, "embedding::text")
		assert.Contains(t, query, "WHERE id IN ($1,$2)")
		assert.Equal(t, []any{encodeID(1), encodeID(2)}, args)
	})

	t.Run("by date", func(t *testing.T) {
		start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		query, args, err := selectArticlesByDateQuery(start, start.AddDate(1, 0, 0))
		require.NoError(t, err)
		assert.Contains(t, query, "published_at >= $1")
		assert.Contains(t, query, "published_at < $2")
		assert.Contains(t, query, "ORDER BY published_at ASC, id ASC")
		assert.Len(t, args, 2)
	})

	t.Run("recent", func(t *testing.T) {
		query, _, err := selectRecentArticlesQuery(5)
		require.NoError(t, err)
		assert.Contains(t, query, "ORDER BY published_at DESC, id DESC LIMIT 5")
	})

	t.Run("list ids", func(t *testing.T) {
		query, args, err := listArticleIDsQuery(core.ID(9), 0)
		require.NoError(t, err)
		assert.Contains(t, query, "WHERE id > $1 ORDER BY id ASC")
		assert.NotContains(t, query, "LIMIT")
		assert.Equal(t, []any{encodeID(9)}, args)

		query, _, err = listArticleIDsQuery(core.ID(9), 50)
		require.NoError(t, err)
		assert.Contains(t, query, "LIMIT 50")
	})

	t.Run("cache and checkpoints", func(t *testing.T) {
		query, _, err := upsertCacheEntryQuery(&core.QueryCacheEntry{Key: "k", Embedding: []float32{1}})
		require.NoError(t, err)
		assert.Contains(t, query, "ON CONFLICT (key) DO UPDATE")

		query, args, err := saveCheckpointQuery(&core.Checkpoint{ProcessorType: "reembed", LastID: 3})
		require.NoError(t, err)
		assert.Contains(t, query, "ON CONFLICT (processor_type) DO UPDATE")
		assert.Equal(t, encodeID(3), args[1])

		query, _, err = clearCheckpointQuery("reembed")
		require.NoError(t, err)
		assert.Contains(t, query, "DELETE FROM checkpoints WHERE processor_type = $1")
	})
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(1536)
	require.NotEmpty(t, stmts)
	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", stmts[0])
	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, "embedding       vector(1536)")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS query_cache")
	assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS checkpoints")
}
