package badger

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// ArticleRepository implements storage.ArticleRepository for BadgerDB.
type ArticleRepository struct {
	backend *Backend
}

var _ storage.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(backend *Backend) *ArticleRepository {
	return &ArticleRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend is closed by its owner.
func (r *ArticleRepository) Close() error {
	return nil
}

// UpsertArticles inserts or replaces articles keyed by ID.
func (r *ArticleRepository) UpsertArticles(ctx context.Context, articles ...*core.Article) ([]*core.Article, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, article := range articles {
			if err := ctx.Err(); err != nil {
				return err
			}
			if article.Id == 0 {
				return storage.ErrMissingID
			}
			key := makeArticleKey(article.Id)

			old, err := readArticle(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				article.InsertedAt = old.InsertedAt
				if !old.PublishedAt.Equal(article.PublishedAt) {
					if err := tx.Delete(makeArticleDateKey(old.PublishedAt, old.Id)); err != nil {
						return err
					}
				}
			} else if article.InsertedAt.IsZero() {
				article.InsertedAt = now
			}
			article.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalArticle(article)); err != nil {
				return err
			}
			dateKey := makeArticleDateKey(article.PublishedAt, article.Id)
			if err := tx.Set(dateKey, storage.MarshalID(article.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// GetArticle retrieves a single article by ID.
func (r *ArticleRepository) GetArticle(ctx context.Context, id core.ID) (*core.Article, error) {
	var result *core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readArticle(tx, makeArticleKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetArticles retrieves multiple articles by their IDs.
func (r *ArticleRepository) GetArticles(ctx context.Context, ids ...core.ID) ([]*core.Article, error) {
	result := make([]*core.Article, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			article, err := readArticle(tx, makeArticleKey(id))
			if err != nil {
				return err
			}
			if article != nil {
				result = append(result, article)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetArticlesByDateRange retrieves articles published within [start, end).
func (r *ArticleRepository) GetArticlesByDateRange(ctx context.Context, start, end time.Time) ([]*core.Article, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialArticleDateKey(start)
		endKey := makePartialArticleDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) >= 0 {
				break
			}
			article, err := readIndexedArticle(tx, iter.Item())
			if err != nil {
				return err
			}
			if article != nil {
				results = append(results, article)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentArticles retrieves the most recently published articles first.
func (r *ArticleRepository) GetRecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	var results []*core.Article
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialArticleDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(articleDatePrefix)

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			if !bytes.HasPrefix(iter.Item().Key(), prefix) {
				break
			}
			article, err := readIndexedArticle(tx, iter.Item())
			if err != nil {
				return err
			}
			if article != nil {
				results = append(results, article)
			}
		}
		return nil
	}, false)

	return results, err
}

// ListArticleIDs returns article IDs greater than after, in ascending order.
func (r *ArticleRepository) ListArticleIDs(ctx context.Context, after core.ID, limit int) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articlePrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeArticleKey(after)); iter.Valid(); iter.Next() {
			id, ok := articleIDFromKey(iter.Item().Key())
			if !ok || id <= after {
				continue
			}
			ids = append(ids, id)
			if limit > 0 && len(ids) >= limit {
				break
			}
		}
		return nil
	}, false)
	return ids, err
}

// SimilaritySearch scans every embedded article and scores it against vector.
func (r *ArticleRepository) SimilaritySearch(ctx context.Context, vector []float32, filters core.SearchFilters, limit int) ([]core.SimilarityMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	matches := []core.SimilarityMatch{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(articlePrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var article *core.Article
			err := iter.Item().Value(func(val []byte) error {
				var err error
				article, err = storage.UnmarshalArticle(val)
				return err
			})
			if err != nil {
				return err
			}
			if !article.HasEmbedding() {
				continue
			}
			if len(article.Embedding) != len(vector) {
				return &core.DimensionError{Expected: len(vector), Got: len(article.Embedding)}
			}
			if filters.Year != 0 && article.PublishedAt.Year() != filters.Year {
				continue
			}

			score := cosineSimilarity(vector, article.Embedding)
			if filters.MinSimilarity != nil && score < *filters.MinSimilarity {
				continue
			}
			matches = append(matches, core.SimilarityMatch{ArticleId: article.Id, Score: score})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(matches, func(a, b core.SimilarityMatch) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	r.backend.logger.Debug("similarity scan complete", "matches", len(matches), "limit", limit)
	return matches, nil
}

// Helper methods

// readArticle reads an article from the transaction.
// Returns nil, nil if the key doesn't exist.
func readArticle(tx *badger.Txn, key []byte) (*core.Article, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var article *core.Article
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		article, unmarshalErr = storage.UnmarshalArticle(val)
		return unmarshalErr
	})
	return article, err
}

// readIndexedArticle follows a date index entry to its article.
func readIndexedArticle(tx *badger.Txn, item *badger.Item) (*core.Article, error) {
	var id core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}
	return readArticle(tx, makeArticleKey(id))
}
