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


package reembed

import (
	"context"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

const (
	// DefaultBatchSize is the default number of articles to fetch in each batch
	DefaultBatchSize = 100
)

// Page is one step of an iteration.
type Page struct {
	// Articles are the articles to process. With missingOnly they exclude
	// already-embedded articles, so the slice may be empty.
	Articles []*core.Article

	// Visited is the number of IDs the page covered, filtered or not.
	Visited int

	// LastID is the highest ID of the page, suitable for a checkpoint.
	LastID core.ID
}

// ArticleIterator pages through stored articles in ascending ID order.
type ArticleIterator struct {
	repo        storage.ArticleRepository
	batchSize   int
	missingOnly bool
}

// NewArticleIterator creates a new article iterator.
// batchSize: number of articles to fetch in each batch (defaults when <= 0)
// missingOnly: skip articles that already carry an embedding
func NewArticleIterator(repo storage.ArticleRepository, batchSize int, missingOnly bool) *ArticleIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ArticleIterator{
		repo:        repo,
		batchSize:   batchSize,
		missingOnly: missingOnly,
	}
}

// Count returns the number of article IDs greater than after.
func (it *ArticleIterator) Count(ctx context.Context, after core.ID) (int, error) {
	ids, err := it.repo.ListArticleIDs(ctx, after, 0)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ForEach calls fn with successive pages of articles whose IDs are greater than after.
// Iteration stops on the first error from fn or when all articles are visited.
// Context cancellation is checked between batches.
func (it *ArticleIterator) ForEach(ctx context.Context, after core.ID, fn func(page Page) error) error {
	cursor := after
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := it.repo.ListArticleIDs(ctx, cursor, it.batchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		articles, err := it.repo.GetArticles(ctx, ids...)
		if err != nil {
			return err
		}
		if it.missingOnly {
			pending := articles[:0]
			for _, a := range articles {
				if !a.HasEmbedding() {
					pending = append(pending, a)
				}
			}
			articles = pending
		}

		cursor = ids[len(ids)-1]
		if err := fn(Page{Articles: articles, Visited: len(ids), LastID: cursor}); err != nil {
			return err
		}

		if len(ids) < it.batchSize {
			return nil
		}
	}
}
