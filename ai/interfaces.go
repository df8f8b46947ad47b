package ai

import (
	"context"

	"github.com/poiesic/fraudlens/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Predictor is an offline-trained classifier that scores an embedding.
// Implementations must be thread-safe for concurrent use.
type Predictor interface {
	// Predict returns the most likely fraud type and its confidence in [0, 1].
	// A vector of the wrong length fails with a core.DimensionError.
	Predict(vector []float32) (core.Prediction, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// EmbedFunc adapts an Embedder to the single-text function shape used by the embedding cache.
func EmbedFunc(e Embedder) func(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedText
}
