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


// Package storage provides the storage abstraction layer for fraudlens.
//
// Repository interfaces decouple the engine from the backend. Two backends exist:
// storage/badger (embedded, brute-force cosine similarity) and storage/postgres
// (pgvector). Both satisfy the same interfaces and the same filter semantics.
//
// # Architecture
//
//   - ArticleRepository: articles, the date index and the similarity query
//   - QueryCacheRepository: embeddings keyed by normalized-text hash
//   - CheckpointRepository: progress markers for backfill jobs
//
// Records are encoded with the MUS serializers in codec.go. Field order is the
// on-disk format.
//
// # Usage
//
//	articles, cache, checkpoints, backend, err := badger.NewRepositories("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// Use in tests with in-memory storage:
//
//	articles, cache, checkpoints, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
