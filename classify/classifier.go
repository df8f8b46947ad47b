package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/textnorm"
)

const (
	// DefaultSummaryWidth is the display width of fallback summaries.
	DefaultSummaryWidth = 160

	summaryTail = "…"
)

var sentenceEnd = regexp.MustCompile(`[.!?](\s|$)`)

// Result is the outcome of classifying one text.
type Result struct {
	Category core.FraudType
	Tags     []string
	Summary  string
}

// Matched reports whether any rule matched.
func (r Result) Matched() bool {
	return r.Category != core.FraudTypeNone
}

// Classifier assigns a fraud type, tags and summary to normalized text.
// It performs no I/O and is safe for concurrent use.
type Classifier struct {
	rules        *RuleSet
	summaryWidth int
	logger       *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithSummaryWidth sets the display width of fallback summaries.
// Default is DefaultSummaryWidth.
func WithSummaryWidth(width int) Option {
	return func(c *Classifier) error {
		if width < 1 {
			width = DefaultSummaryWidth
		}
		c.summaryWidth = width
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClassifier creates a classifier over the given rule table.
func NewClassifier(rules *RuleSet, opts ...Option) (*Classifier, error) {
	if rules == nil {
		return nil, ErrRulesRequired
	}

	c := &Classifier{
		rules:        rules,
		summaryWidth: DefaultSummaryWidth,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "classifier")
	return c, nil
}

// NewDefaultClassifier creates a classifier over the built-in rule table.
func NewDefaultClassifier(opts ...Option) (*Classifier, error) {
	rules, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return NewClassifier(rules, opts...)
}

// Rules returns the classifier's rule table.
func (c *Classifier) Rules() *RuleSet {
	return c.rules
}

// Classify matches normalized text against the rule table.
//
// Every matching group contributes its tags, whatever its category. The category is the
// first one in table order with a matching group. No match is not an error: the result has
// an empty category and no tags. Malformed text fails with core.ErrInvalidInput.
func (c *Classifier) Classify(normalizedText string) (Result, error) {
	if err := textnorm.Validate(normalizedText); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(normalizedText) == "" {
		return Result{Tags: []string{}}, nil
	}

	result := Result{Tags: []string{}}
	seen := make(map[string]bool)
	primaryTag := ""

	for _, rule := range c.rules.rules {
		for gi := range rule.Groups {
			group := &rule.Groups[gi]
			if !group.matches(normalizedText) {
				continue
			}
			isPrimary := false
			if result.Category == core.FraudTypeNone {
				result.Category = rule.Category
				isPrimary = true
			} else if result.Category == rule.Category {
				isPrimary = true
			}
			for _, tag := range group.Tags {
				if isPrimary && primaryTag == "" {
					primaryTag = tag
				}
				if !seen[tag] {
					seen[tag] = true
					result.Tags = append(result.Tags, tag)
				}
			}
		}
	}

	result.Summary = c.summarize(result, primaryTag, normalizedText)
	c.logger.Debug("classified text", "category", result.Category, "tags", len(result.Tags))
	return result, nil
}

// summarize builds the deterministic summary for a classification.
func (c *Classifier) summarize(result Result, primaryTag, text string) string {
	if !result.Matched() {
		return runewidth.Truncate(FirstSentence(text), c.summaryWidth, summaryTail)
	}

	tag := primaryTag
	if tag == "" && len(result.Tags) > 0 {
		tag = result.Tags[0]
	}
	label := c.rules.Label(result.Category)
	if tag == "" {
		return label + "."
	}
	return label + ": " + humanizeTag(tag) + "."
}

// FirstSentence returns text up to and including the first sentence terminator.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	loc := sentenceEnd.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]+1]
}

func humanizeTag(tag string) string {
	return strings.ReplaceAll(tag, "_", " ")
}
