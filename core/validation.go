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
	"fmt"
	"time"
	"unicode/utf8"
)

// ValidateRawArticle validates a scraped article before processing.
//
// Validation rules:
//   - Title must not be empty
//   - Source must be one of newsroom, blog, enforcement
//   - Date must not be in the future
//   - Text must be well-formed (see ValidateText)
//
// NOT validated:
//   - Text may be empty; empty text is a no-op for classification and embedding
//   - URL may be empty; the ID then falls back to title and date
func ValidateRawArticle(raw *RawArticle) error {
	if raw == nil {
		return fmt.Errorf("%w: article is nil", ErrInvalidInput)
	}

	if raw.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyTitle)
	}

	if err := ValidateSource(raw.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if !IsValidDate(raw.Date) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidDate)
	}

	return ValidateText(raw.Text)
}

// ValidateText rejects text that is not valid UTF-8 or that carries binary control bytes.
// Tabs, newlines and carriage returns are allowed.
func ValidateText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			return fmt.Errorf("%w: binary byte 0x%02x at offset %d", ErrInvalidInput, c, i)
		}
		if c == 0x7f {
			return fmt.Errorf("%w: binary byte 0x7f at offset %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// ValidateSource validates that a Source has a known value.
func ValidateSource(source Source) error {
	if _, ok := sourceNames[source]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidSource, source)
	}
	return nil
}

// IsValidDate checks if a publication date is valid (not in the future).
func IsValidDate(ts time.Time) bool {
	return !ts.After(time.Now())
}
