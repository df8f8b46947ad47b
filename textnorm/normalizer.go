package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/poiesic/fraudlens/core"
)

// Normalizer canonicalizes article and query text for matching and cache keys.
// It is stateless after construction and safe for concurrent use.
type Normalizer struct {
	urlPattern     *regexp.Regexp
	tagPattern     *regexp.Regexp
	mdLinkPattern  *regexp.Regexp
	mdNoisePattern *regexp.Regexp
}

// NewNormalizer compiles the patterns used by Normalize.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		urlPattern:     regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"')\]]+`),
		tagPattern:     regexp.MustCompile(`<[^<>]*>`),
		mdLinkPattern:  regexp.MustCompile(`\[([^\[\]]*)\]\([^()]*\)`),
		mdNoisePattern: regexp.MustCompile("[*_`#>]+"),
	}
}

var defaultNormalizer = NewNormalizer()

// Normalize canonicalizes text with the package-level Normalizer.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Normalize lower-cases text, strips URLs and markup, and collapses whitespace.
// The result is deterministic and Normalize(Normalize(x)) == Normalize(x).
// Empty or whitespace-only input yields "".
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	// Unescaping can surface new links or tags, e.g. "&lt;b&gt;", so the whole
	// pass repeats until the output is a fixed point of it.
	return untilStable(text, n.pass)
}

// pass applies every rewrite once.
func (n *Normalizer) pass(s string) string {
	// Markdown links keep their anchor text
	s = n.mdLinkPattern.ReplaceAllString(s, "$1")
	s = html.UnescapeString(n.tagPattern.ReplaceAllString(s, " "))
	s = n.urlPattern.ReplaceAllString(s, " ")
	s = n.mdNoisePattern.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// untilStable applies fn until the text stops changing.
func untilStable(s string, fn func(string) string) string {
	for {
		next := fn(s)
		if next == s {
			return s
		}
		s = next
	}
}

// Validate rejects text that cannot be normalized: invalid UTF-8 or binary
// control bytes. The error wraps core.ErrInvalidInput.
func Validate(text string) error {
	return core.ValidateText(text)
}

// Truncate shortens s to at most limit runes without splitting a character.
// limit <= 0 disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
