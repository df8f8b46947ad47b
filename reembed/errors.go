package reembed

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrArticleRepositoryRequired is returned when an article repository is not provided.
	ErrArticleRepositoryRequired = errors.New("article repository required")

	// ErrCheckpointRepositoryRequired is returned when resuming without a checkpoint repository.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrCacheRequired is returned when backfilling without an embedding cache.
	ErrCacheRequired = errors.New("embedding cache required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
