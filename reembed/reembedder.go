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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/fraudlens/ai"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/storage"
)

// CheckpointName identifies reembedding progress in the checkpoint store.
const CheckpointName = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of articles to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of articles)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed provider or store calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MissingOnly restricts the run to articles without an embedding
	MissingOnly bool

	// Refresh bypasses the embedding cache and overwrites stored vectors
	Refresh bool

	// Resume continues after the last saved checkpoint
	Resume bool

	// MaxEmbedChars bounds the text sent to the provider; 0 disables truncation
	MaxEmbedChars int

	// Dimensions is the required vector length in refresh mode
	Dimensions int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxEmbedChars:  6000,
		Dimensions:     core.EmbeddingDimensions,
	}
}

// Stats summarizes a completed run.
type Stats struct {
	// Visited counts every article the run looked at.
	Visited int

	// Embedded counts articles written back with a new vector.
	Embedded int

	// Skipped counts articles with no embeddable text.
	Skipped int

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// Reembedder backfills or refreshes article embeddings across the store.
type Reembedder struct {
	articles    storage.ArticleRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ArticleIterator
	logger      *slog.Logger
}

// NewReembedder creates a new reembedder.
// checkpoints: may be nil unless config.Resume is set; progress is then not saved
// cache: required unless config.Refresh is set
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	articles storage.ArticleRepository,
	checkpoints storage.CheckpointRepository,
	cache EmbeddingCache,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*Reembedder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if articles == nil {
		return nil, ErrArticleRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config.Resume && checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if config.Refresh {
		cache = nil
	} else if cache == nil {
		return nil, ErrCacheRequired
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	processor := NewBatchProcessor(articles, cache, embedder, config.MaxRetries, config.RetryDelay)
	processor.maxChars = config.MaxEmbedChars
	if config.Dimensions > 0 {
		processor.dimensions = config.Dimensions
	}

	return &Reembedder{
		articles:    articles,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   processor,
		iterator:    NewArticleIterator(articles, config.BatchSize, config.MissingOnly),
		logger:      slog.Default().With("component", "reembed"),
	}, nil
}

// Run executes the reembedding operation.
// A checkpoint is saved after every batch and cleared when the run completes,
// so a failed or interrupted run can be resumed with Config.Resume.
func (r *Reembedder) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	after, err := r.startAfter(ctx)
	if err != nil {
		return stats, err
	}

	total, err := r.iterator.Count(ctx, after)
	if err != nil {
		return stats, fmt.Errorf("%w: failed to count articles: %w", core.ErrStoreUnavailable, err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No articles to embed (0 articles)\n")
		return stats, r.clearCheckpoint(ctx)
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d articles (batch size: %d, missing only: %t, refresh: %t)\n",
		total, r.iterator.batchSize, r.config.MissingOnly, r.config.Refresh)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, after, func(page Page) error {
		batch, err := r.processor.Process(ctx, page.Articles)
		if err != nil {
			return fmt.Errorf("failed to process batch ending at article %d: %w", page.LastID, err)
		}

		stats.Visited += page.Visited
		stats.Embedded += batch.Embedded
		stats.Skipped += batch.Skipped
		tracker.Add(page.Visited, batch.Skipped)

		return r.saveCheckpoint(ctx, page.LastID)
	})
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("reembedding stopped", "visited", stats.Visited, "err", err)
		return stats, err
	}

	tracker.Finish()
	if err := r.clearCheckpoint(ctx); err != nil {
		return stats, err
	}

	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d of %d articles in %v (%d skipped)\n",
		stats.Embedded, stats.Visited, stats.Elapsed.Round(time.Millisecond), stats.Skipped)
	r.logger.Info("reembedding complete", "visited", stats.Visited, "embedded", stats.Embedded, "skipped", stats.Skipped)

	return stats, nil
}

func (r *Reembedder) startAfter(ctx context.Context) (core.ID, error) {
	if !r.config.Resume {
		return 0, nil
	}
	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, CheckpointName)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to load checkpoint: %w", core.ErrStoreUnavailable, err)
	}
	if checkpoint == nil {
		return 0, nil
	}
	fmt.Fprintf(r.progress, "Resuming after article %d (checkpoint from %s)\n",
		checkpoint.LastID, checkpoint.UpdatedAt.Format(time.RFC3339))
	return checkpoint.LastID, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, lastID core.ID) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{ProcessorType: CheckpointName, LastID: lastID})
	if err != nil {
		return fmt.Errorf("%w: failed to save checkpoint: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Reembedder) clearCheckpoint(ctx context.Context) error {
	if r.checkpoints == nil {
		return nil
	}
	if err := r.checkpoints.ClearCheckpoint(ctx, CheckpointName); err != nil {
		return fmt.Errorf("%w: failed to clear checkpoint: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}
