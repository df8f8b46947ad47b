package search

import (
	"strings"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/textnorm"
)

// keywordMatcher tests articles against a keyword filter.
type keywordMatcher struct {
	// raw is the trimmed, lower-cased keyword. Empty disables the filter.
	raw string
	// normalized is the keyword canonicalized like article text. It is empty when
	// the keyword consists only of URLs or markup; such keywords match raw text only.
	normalized string
}

func newKeywordMatcher(keyword string) keywordMatcher {
	return keywordMatcher{
		raw:        strings.ToLower(strings.TrimSpace(keyword)),
		normalized: textnorm.Normalize(keyword),
	}
}

// matches reports whether the article's raw or normalized text contains the keyword.
func (m keywordMatcher) matches(article *core.Article) bool {
	if m.raw == "" {
		return true
	}
	text := strings.ToLower(article.Text)
	if strings.Contains(text, m.raw) {
		return true
	}
	if m.normalized == "" {
		return false
	}
	if strings.Contains(text, m.normalized) {
		return true
	}
	normalized := article.NormalizedText
	if normalized == "" {
		normalized = textnorm.Normalize(article.Text)
	}
	return strings.Contains(normalized, m.normalized)
}
