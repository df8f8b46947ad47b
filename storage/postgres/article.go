package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// ArticleRepository implements storage.ArticleRepository on PostgreSQL.
type ArticleRepository struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

var _ storage.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates a new ArticleRepository for vectors of the given
// length. dimensions below 1 means core.EmbeddingDimensions; a nil logger uses
// slog.Default().
func NewArticleRepository(pool *pgxpool.Pool, dimensions int, logger *slog.Logger) *ArticleRepository {
	if dimensions < 1 {
		dimensions = core.EmbeddingDimensions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArticleRepository{
		pool:       pool,
		dimensions: dimensions,
		logger:     logger.With("component", "postgres"),
	}
}

// Dimensions returns the vector length the repository accepts.
func (r *ArticleRepository) Dimensions() int {
	return r.dimensions
}

// Close is a no-op; the pool is closed by its owner.
func (r *ArticleRepository) Close() error {
	return nil
}

// UpsertArticles writes all articles in one transaction.
func (r *ArticleRepository) UpsertArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, article := range articles {
			if article.Id == 0 {
				return storage.ErrMissingID
			}
			query, args, err := upsertArticleQuery(article, now)
			if err != nil {
				return err
			}
			var insertedAt time.Time
			if err := tx.QueryRow(ctx, query, args...).Scan(&insertedAt); err != nil {
				return fmt.Errorf("failed to upsert article %d: %w", article.Id, err)
			}
			article.InsertedAt = insertedAt.UTC()
			article.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// GetArticle retrieves a single article by ID.
func (r *ArticleRepository) GetArticle(ctx context.Context, id core.ID) (*core.Article, error) {
	articles, err := r.GetArticles(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, storage.ErrNotFound
	}
	return articles[0], nil
}

// GetArticles retrieves articles in the order requested, skipping missing IDs.
func (r *ArticleRepository) GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error) {
	if len(ids) == 0 {
		return []*core.Article{}, nil
	}
	query, args, err := selectArticlesByIDQuery(ids)
	if err != nil {
		return nil, err
	}
	found, err := r.queryArticles(ctx, query, args)
	if err != nil {
		return nil, err
	}

	byID := make(map[core.ID]*core.Article, len(found))
	for _, a := range found {
		byID[a.Id] = a
	}
	result := make([]*core.Article, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

// GetArticlesByDateRange retrieves articles published within [start, end).
func (r *ArticleRepository) GetArticlesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Article, error) {
	query, args, err := selectArticlesByDateQuery(start, end)
	if err != nil {
		return nil, err
	}
	return r.queryArticles(ctx, query, args)
}

// GetRecentArticles retrieves the most recently published articles first.
func (r *ArticleRepository) GetRecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	if limit <= 0 {
		return []*core.Article{}, nil
	}
	query, args, err := selectRecentArticlesQuery(limit)
	if err != nil {
		return nil, err
	}
	return r.queryArticles(ctx, query, args)
}

// ListArticleIDs returns article IDs greater than after, in ascending order.
func (r *ArticleRepository) ListArticleIDs(ctx context.Context, after core.ID, limit int) ([]core.ID, error) {
	query, args, err := listArticleIDsQuery(after, limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list article ids: %w", err)
	}
	encoded, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan article ids: %w", err)
	}
	ids := make([]core.ID, len(encoded))
	for i, v := range encoded {
		ids[i] = decodeID(v)
	}
	return ids, nil
}

// SimilaritySearch runs the cosine similarity query in the database.
func (r *ArticleRepository) SimilaritySearch(ctx context.Context, vector []float32, filters core.SearchFilters, limit int) ([]core.SimilarityMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if len(vector) != r.dimensions {
		return nil, &core.DimensionError{Expected: r.dimensions, Got: len(vector)}
	}

	query, args, err := similarityQuery(vector, filters, limit)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run similarity query: %w", err)
	}
	defer rows.Close()

	matches := []core.SimilarityMatch{}
	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("failed to scan similarity match: %w", err)
		}
		matches = append(matches, core.SimilarityMatch{ArticleId: decodeID(id), Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating similarity matches: %w", err)
	}

	r.logger.Debug("similarity query complete", "matches", len(matches), "limit", limit)
	return matches, nil
}

func (r *ArticleRepository) queryArticles(ctx context.Context, query string, args []any) ([]*core.Article, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	result := []*core.Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}
	return result, nil
}

func scanArticle(row pgx.Row) (*core.Article, error) {
	var (
		a          core.Article
		id         int64
		source     string
		fraudType  string
		embedding  *string
		prediction *string
		confidence *float64
	)
	err := row.Scan(
		&id, &a.Title, &a.PublishedAt, &source, &a.URL, &a.Text, &a.NormalizedText,
		&fraudType, &a.FraudTags, &a.Summary, &a.Classified, &embedding,
		&prediction, &confidence, &a.InsertedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	a.Id = decodeID(id)
	a.FraudType = core.FraudType(fraudType)
	a.PublishedAt = a.PublishedAt.UTC()
	a.InsertedAt = a.InsertedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if src, err := core.ParseSource(source); err == nil {
		a.Source = src
	}
	if len(a.FraudTags) == 0 {
		a.FraudTags = nil
	}
	if embedding != nil {
		if a.Embedding, err = parseVector(*embedding); err != nil {
			return nil, err
		}
	}
	if prediction != nil && confidence != nil {
		a.Prediction = &core.Prediction{Category: core.FraudType(*prediction), Confidence: *confidence}
	}
	return &a, nil
}
