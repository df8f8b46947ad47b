package search

import (
	"github.com/poiesic/fraudlens/core"
)

// DropReason names the local filter that removed a candidate.
type DropReason string

const (
	DropYear       DropReason = "year"
	DropKeyword    DropReason = "keyword"
	DropSimilarity DropReason = "min_similarity"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(filters core.SearchFilters, topK, candidates int)
	AfterSimilaritySearch(matches []core.SimilarityMatch)
	AfterArticleRetrieval(articles []*core.Article)
	Dropped(article *core.Article, score float32, reason DropReason)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.SearchFilters, _, _ int)             {}
func (n *noopMonitor) AfterSimilaritySearch(_ []core.SimilarityMatch)   {}
func (n *noopMonitor) AfterArticleRetrieval(_ []*core.Article)          {}
func (n *noopMonitor) Dropped(_ *core.Article, _ float32, _ DropReason) {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)                    {}
