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


package badger

import (
	"log/slog"

	"github.com/poiesic/fraudlens/storage"
)

// Repositories bundles the repositories that share one backend.
type Repositories struct {
	Articles    storage.ArticleRepository
	Cache       storage.QueryCacheRepository
	Checkpoints storage.CheckpointRepository
	Backend     *Backend
}

// Close closes the shared backend.
func (r *Repositories) Close() error {
	return r.Backend.Close()
}

// OpenRepositories opens an on-disk store at path.
func OpenRepositories(path string, logger *slog.Logger) (*Repositories, error) {
	backend, err := OpenBackend(path, false, logger)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the returned Repositories when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true, nil)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend), nil
}

func newRepositories(backend *Backend) *Repositories {
	return &Repositories{
		Articles:    NewArticleRepository(backend),
		Cache:       NewQueryCacheRepository(backend),
		Checkpoints: NewCheckpointRepository(backend),
		Backend:     backend,
	}
}
