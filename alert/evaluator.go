// Package alert flags articles that deserve attention.
//
// An article is flagged when its rule-assigned fraud type is high risk, or when the
// ML prediction names a high-risk type with confidence strictly above the threshold.
package alert

import (
	"fmt"
	"slices"

	"github.com/poiesic/fraudlens/core"
)

// DefaultMLThreshold is the confidence an ML prediction must exceed to raise an alert.
const DefaultMLThreshold = 0.6

// DefaultHighRisk returns the fraud types flagged out of the box.
func DefaultHighRisk() []core.FraudType {
	return []core.FraudType{"reg_e", "crypto", "wire_transfer", "identity_theft"}
}

// Config holds the alert policy.
type Config struct {
	HighRisk    []core.FraudType
	MLThreshold float64
}

// DefaultConfig returns the default alert policy.
func DefaultConfig() Config {
	return Config{
		HighRisk:    DefaultHighRisk(),
		MLThreshold: DefaultMLThreshold,
	}
}

// Evaluator applies an alert policy. It performs no I/O and is safe for concurrent use.
type Evaluator struct {
	highRisk  map[core.FraudType]struct{}
	threshold float64
}

// NewEvaluator builds an evaluator from cfg.
// A nil HighRisk list uses DefaultHighRisk; an empty non-nil list flags nothing by type.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if cfg.MLThreshold < 0 || cfg.MLThreshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, cfg.MLThreshold)
	}
	types := cfg.HighRisk
	if types == nil {
		types = DefaultHighRisk()
	}

	e := &Evaluator{
		highRisk:  make(map[core.FraudType]struct{}, len(types)),
		threshold: cfg.MLThreshold,
	}
	for _, t := range types {
		e.highRisk[t] = struct{}{}
	}
	return e, nil
}

// NewDefaultEvaluator builds an evaluator with DefaultConfig.
func NewDefaultEvaluator() *Evaluator {
	e, _ := NewEvaluator(DefaultConfig())
	return e
}

// IsHighRisk reports whether t is in the high-risk set.
func (e *Evaluator) IsHighRisk(t core.FraudType) bool {
	if t == core.FraudTypeNone {
		return false
	}
	_, ok := e.highRisk[t]
	return ok
}

// Evaluate reports whether article should raise an alert.
func (e *Evaluator) Evaluate(article *core.Article) bool {
	return e.ruleSignal(article) || e.mlSignal(article)
}

// Reason describes which signal raised the alert, or returns "" when none did.
func (e *Evaluator) Reason(article *core.Article) string {
	rule, ml := e.ruleSignal(article), e.mlSignal(article)
	switch {
	case rule && ml:
		return fmt.Sprintf("high-risk type %s; model agrees at %.2f confidence", article.FraudType, article.Prediction.Confidence)
	case rule:
		return fmt.Sprintf("high-risk type %s", article.FraudType)
	case ml:
		return fmt.Sprintf("model predicts %s at %.2f confidence", article.Prediction.Category, article.Prediction.Confidence)
	}
	return ""
}

// Filter returns the flagged articles, most recently published first, up to limit.
// A limit <= 0 returns every flagged article. The input slice is not modified.
func (e *Evaluator) Filter(articles []*core.Article, limit int) []*core.Article {
	flagged := make([]*core.Article, 0)
	for _, a := range articles {
		if e.Evaluate(a) {
			flagged = append(flagged, a)
		}
	}
	slices.SortStableFunc(flagged, func(a, b *core.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	if limit > 0 && len(flagged) > limit {
		flagged = flagged[:limit]
	}
	return flagged
}

// Mark sets Alert on each result whose article raises an alert.
func (e *Evaluator) Mark(results []*core.SearchResult) {
	for _, r := range results {
		r.Alert = e.Evaluate(r.Article)
	}
}

func (e *Evaluator) ruleSignal(article *core.Article) bool {
	return article != nil && e.IsHighRisk(article.FraudType)
}

func (e *Evaluator) mlSignal(article *core.Article) bool {
	if article == nil || article.Prediction == nil {
		return false
	}
	p := article.Prediction
	return p.Confidence > e.threshold && e.IsHighRisk(p.Category)
}
