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


package ingestion

import (
	"context"

	"github.com/poiesic/fraudlens/classify"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/embedcache"
)

// processor is an internal interface for one enrichment stage of the pipeline.
// Stages run in order on a single article and must be idempotent.
type processor interface {
	// name identifies the stage in logs and errors.
	name() string

	// process enriches article in place.
	process(ctx context.Context, article *core.Article) error
}

// Classifier assigns fraud categories to normalized text.
type Classifier interface {
	Classify(normalizedText string) (classify.Result, error)
}

// EmbeddingCache returns an embedding for text, calling embed only on a miss.
type EmbeddingCache interface {
	GetOrCreate(ctx context.Context, text string, embed embedcache.EmbedFunc) ([]float32, error)
}
