package core

import (
	"fmt"
	"strings"
)

// Source identifies where an article was published.
type Source int

const (
	// SourceNewsroom is a press release from the newsroom.
	SourceNewsroom Source = iota + 1
	// SourceBlog is a blog post.
	SourceBlog
	// SourceEnforcement is an enforcement action.
	SourceEnforcement
)

var sourceNames = map[Source]string{
	SourceNewsroom:    "newsroom",
	SourceBlog:        "blog",
	SourceEnforcement: "enforcement",
}

// String returns the lower-case source name.
func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSource converts a source name to a Source.
func ParseSource(name string) (Source, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for s, n := range sourceNames {
		if n == needle {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	if _, ok := sourceNames[s]; !ok {
		return nil, fmt.Errorf("%w: unknown source %d", ErrInvalidInput, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
