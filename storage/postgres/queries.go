package postgres

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/poiesic/fraudlens/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "title", "published_at", "source", "url", "text", "normalized_text",
	"fraud_type", "fraud_tags", "summary", "classified", "embedding::text",
	"ml_prediction", "ml_confidence", "inserted_at", "updated_at",
}

const similarityExpr = "1 - (embedding <=> ?::vector)"

// upsertArticleQuery inserts an article or replaces every column except inserted_at.
func upsertArticleQuery(a *core.Article, now time.Time) (string, []any, error) {
	tags := a.FraudTags
	if tags == nil {
		tags = []string{}
	}
	var prediction, confidence any
	if a.Prediction != nil {
		prediction = string(a.Prediction.Category)
		confidence = a.Prediction.Confidence
	}
	insertedAt := a.InsertedAt
	if insertedAt.IsZero() {
		insertedAt = now
	}

	return psql.Insert(articlesTable).
		Columns(
			"id", "title", "published_at", "source", "url", "text", "normalized_text",
			"fraud_type", "fraud_tags", "summary", "classified", "embedding",
			"ml_prediction", "ml_confidence", "inserted_at", "updated_at",
		).
		Values(
			encodeID(a.Id), a.Title, a.PublishedAt.UTC(), a.Source.String(), a.URL, a.Text, a.NormalizedText,
			string(a.FraudType), tags, a.Summary, a.Classified, sq.Expr("?::vector", formatVector(a.Embedding)),
			prediction, confidence, insertedAt, now,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	published_at = EXCLUDED.published_at,
	source = EXCLUDED.source,
	url = EXCLUDED.url,
	text = EXCLUDED.text,
	normalized_text = EXCLUDED.normalized_text,
	fraud_type = EXCLUDED.fraud_type,
	fraud_tags = EXCLUDED.fraud_tags,
	summary = EXCLUDED.summary,
	classified = EXCLUDED.classified,
	embedding = EXCLUDED.embedding,
	ml_prediction = EXCLUDED.ml_prediction,
	ml_confidence = EXCLUDED.ml_confidence,
	updated_at = EXCLUDED.updated_at
RETURNING inserted_at`).
		ToSql()
}

func selectArticlesByIDQuery(ids []core.ID) (string, []any, error) {
	encoded := make([]int64, len(ids))
	for i, id := range ids {
		encoded[i] = encodeID(id)
	}
	return psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"id": encoded}).
		ToSql()
}

func selectArticlesByDateQuery(start, end time.Time) (string, []any, error) {
	return psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.GtOrEq{"published_at": start.UTC()}).
		Where(sq.Lt{"published_at": end.UTC()}).
		OrderBy("published_at ASC", "id ASC").
		ToSql()
}

func selectRecentArticlesQuery(limit int) (string, []any, error) {
	return psql.Select(articleColumns...).
		From(articlesTable).
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
}

func listArticleIDsQuery(after core.ID, limit int) (string, []any, error) {
	q := psql.Select("id").
		From(articlesTable).
		Where(sq.Gt{"id": encodeID(after)}).
		OrderBy("id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}

// similarityQuery mirrors the badger scan: cosine similarity over embedded rows,
// optional year and threshold predicates, best first with id as tie-break.
func similarityQuery(vector []float32, filters core.SearchFilters, limit int) (string, []any, error) {
	vec := formatVector(vector)
	q := psql.Select("id").
		Column(sq.Expr(similarityExpr+" AS similarity", vec)).
		From(articlesTable).
		Where("embedding IS NOT NULL")
	if filters.Year != 0 {
		q = q.Where(sq.Expr("EXTRACT(YEAR FROM published_at AT TIME ZONE 'UTC') = ?", filters.Year))
	}
	if filters.MinSimilarity != nil {
		q = q.Where(sq.Expr(similarityExpr+" >= ?", vec, *filters.MinSimilarity))
	}
	return q.OrderByClause("embedding <=> ?::vector ASC, id ASC", vec).
		Limit(uint64(limit)).
		ToSql()
}

func selectCacheEntryQuery(key string) (string, []any, error) {
	return psql.Select("key", "embedding::text", "created_at").
		From(cacheTable).
		Where(sq.Eq{"key": key}).
		ToSql()
}

func upsertCacheEntryQuery(e *core.QueryCacheEntry) (string, []any, error) {
	return psql.Insert(cacheTable).
		Columns("key", "embedding", "created_at").
		Values(e.Key, sq.Expr("?::vector", formatVector(e.Embedding)), e.CreatedAt.UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET embedding = EXCLUDED.embedding, created_at = EXCLUDED.created_at").
		ToSql()
}

func saveCheckpointQuery(c *core.Checkpoint) (string, []any, error) {
	return psql.Insert(checkpointsTable).
		Columns("processor_type", "last_id", "updated_at").
		Values(c.ProcessorType, encodeID(c.LastID), c.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (processor_type) DO UPDATE SET last_id = EXCLUDED.last_id, updated_at = EXCLUDED.updated_at").
		ToSql()
}

func loadCheckpointQuery(processorType string) (string, []any, error) {
	return psql.Select("processor_type", "last_id", "updated_at").
		From(checkpointsTable).
		Where(sq.Eq{"processor_type": processorType}).
		ToSql()
}

func clearCheckpointQuery(processorType string) (string, []any, error) {
	return psql.Delete(checkpointsTable).
		Where(sq.Eq{"processor_type": processorType}).
		ToSql()
}
