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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/fraudlens/core"
)

func marshal[T any](s mus.Serializer[T], v T) []byte {
	buf := make([]byte, s.Size(v))
	s.Marshal(v, buf)
	return buf
}

func unmarshal[T any](s mus.Serializer[T], data []byte) (T, error) {
	v, _, err := s.Unmarshal(data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return marshal(IDMUS, id)
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	return unmarshal(IDMUS, data)
}

// MarshalArticle serializes an Article to bytes.
func MarshalArticle(article *core.Article) []byte {
	return marshal(ArticleMUS, *article)
}

// UnmarshalArticle deserializes an Article from bytes.
func UnmarshalArticle(data []byte) (*core.Article, error) {
	article, err := unmarshal(ArticleMUS, data)
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// MarshalQueryCacheEntry serializes a QueryCacheEntry to bytes.
func MarshalQueryCacheEntry(entry *core.QueryCacheEntry) []byte {
	return marshal(QueryCacheEntryMUS, *entry)
}

// UnmarshalQueryCacheEntry deserializes a QueryCacheEntry from bytes.
func UnmarshalQueryCacheEntry(data []byte) (*core.QueryCacheEntry, error) {
	entry, err := unmarshal(QueryCacheEntryMUS, data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalCheckpoint serializes a Checkpoint to bytes.
func MarshalCheckpoint(checkpoint *core.Checkpoint) []byte {
	return marshal(CheckpointMUS, *checkpoint)
}

// UnmarshalCheckpoint deserializes a Checkpoint from bytes.
func UnmarshalCheckpoint(data []byte) (*core.Checkpoint, error) {
	checkpoint, err := unmarshal(CheckpointMUS, data)
	if err != nil {
		return nil, err
	}
	return &checkpoint, nil
}
