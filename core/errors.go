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


package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the tagging and retrieval engine.
var (
	// ErrInvalidInput indicates malformed text or a malformed record. Not retryable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates the normalized text is empty. Callers treat it as a no-op.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingProvider indicates the external embedding call failed. Retryable.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrDimensionMismatch indicates a vector of the wrong length. Fatal configuration error.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStoreUnavailable indicates the article or cache store failed. Retryable.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Record validation errors
var (
	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrInvalidSource indicates an unknown Source value.
	ErrInvalidSource = errors.New("invalid source")

	// ErrInvalidDate indicates a publication date in the future.
	ErrInvalidDate = errors.New("publication date cannot be in the future")
)

// DimensionError reports a vector whose length differs from the expected dimension.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d dimensions, got %d", ErrDimensionMismatch, e.Expected, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// CheckDimensions returns a *DimensionError when len(vector) != expected.
func CheckDimensions(vector []float32, expected int) error {
	if len(vector) != expected {
		return &DimensionError{Expected: expected, Got: len(vector)}
	}
	return nil
}

// IsRetryable reports whether a caller may retry the failed operation with backoff.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDimensionMismatch) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrEmptyInput) {
		return false
	}
	return errors.Is(err, ErrEmbeddingProvider) || errors.Is(err, ErrStoreUnavailable)
}
