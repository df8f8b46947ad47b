package classify

import (
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/fraudlens/core"
	"github.com/poiesic/fraudlens/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewDefaultClassifier()
	require.NoError(t, err)
	return c
}

func TestNewClassifier(t *testing.T) {
	t.Run("nil rules", func(t *testing.T) {
		_, err := NewClassifier(nil)
		assert.Equal(t, ErrRulesRequired, err)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		rules, err := DefaultRules()
		require.NoError(t, err)
		c, err := NewClassifier(rules, WithLogger(nil), WithSummaryWidth(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultSummaryWidth, c.summaryWidth)
	})
}

func TestClassify_ZelleComplaint(t *testing.T) {
	c := newTestClassifier(t)

	text := textnorm.Normalize("The Bureau filed a complaint alleging unauthorized transfers via Zelle")
	result, err := c.Classify(text)
	require.NoError(t, err)

	assert.Equal(t, core.FraudType("reg_e"), result.Category)
	assert.Contains(t, result.Tags, "unauthorized_transfer")
	assert.Contains(t, result.Tags, "zelle_fraud")
	assert.Equal(t, "Regulation E: unauthorized transfer.", result.Summary)
}

func TestClassify_Empty(t *testing.T) {
	c := newTestClassifier(t)

	for _, in := range []string{"", "   "} {
		result, err := c.Classify(in)
		require.NoError(t, err)
		assert.Equal(t, core.FraudTypeNone, result.Category)
		assert.Empty(t, result.Tags)
		assert.Empty(t, result.Summary)
		assert.False(t, result.Matched())
	}
}

func TestClassify_RulePriority(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name     string
		text     string
		category core.FraudType
	}{
		{
			name:     "reg_e beats udap",
			text:     "the bank engaged in deceptive practices and ignored unauthorized transfers",
			category: "reg_e",
		},
		{
			name:     "udap alone",
			text:     "the company engaged in unfair and deceptive marketing",
			category: "udap",
		},
		{
			name:     "identity theft beats reg_e",
			text:     "identity theft led to unauthorized transfers from the account",
			category: "identity_theft",
		},
		{
			name:     "specific beats generic",
			text:     "a phishing scheme targeted older consumers",
			category: "phishing",
		},
		{
			name:     "generic fallback",
			text:     "regulators warned about a fraudulent investment scheme",
			category: "generic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.Classify(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.category, result.Category)
		})
	}
}

func TestClassify_TagsAcrossCategories(t *testing.T) {
	c := newTestClassifier(t)

	result, err := c.Classify("deceptive debt collection tactics after unauthorized transfers via zelle")
	require.NoError(t, err)

	assert.Equal(t, core.FraudType("reg_e"), result.Category)
	assert.Equal(t, []string{"unauthorized_transfer", "zelle_fraud", "debt_collection", "udap"}, result.Tags)
}

func TestClassify_TagsDeduplicated(t *testing.T) {
	rules, err := ParseRules([]byte(`
rules:
  - category: first
    groups:
      - tags: [shared]
        patterns: ['alpha']
  - category: second
    groups:
      - tags: [shared, own]
        patterns: ['beta']
`))
	require.NoError(t, err)
	c, err := NewClassifier(rules)
	require.NoError(t, err)

	result, err := c.Classify("alpha beta")
	require.NoError(t, err)
	assert.Equal(t, core.FraudType("first"), result.Category)
	assert.Equal(t, []string{"shared", "own"}, result.Tags)
	assert.Equal(t, "first: shared.", result.Summary)
}

func TestClassify_NoMatch(t *testing.T) {
	c := newTestClassifier(t)

	result, err := c.Classify("the bureau released its annual report. it covers many topics.")
	require.NoError(t, err)
	assert.Equal(t, core.FraudTypeNone, result.Category)
	assert.Empty(t, result.Tags)
	assert.Equal(t, "the bureau released its annual report.", result.Summary)
}

func TestClassify_NoMatchSummaryTruncated(t *testing.T) {
	rules, err := DefaultRules()
	require.NoError(t, err)
	c, err := NewClassifier(rules, WithSummaryWidth(20))
	require.NoError(t, err)

	result, err := c.Classify(strings.Repeat("word ", 30))
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(result.Summary)), 20)
	assert.True(t, strings.HasSuffix(result.Summary, "…"))
}

func TestClassify_Idempotent(t *testing.T) {
	c := newTestClassifier(t)

	text := textnorm.Normalize("CFPB orders <b>Bank</b> to refund ACH errors and resolve billing errors under Regulation Z")
	first, err := c.Classify(text)
	require.NoError(t, err)
	second, err := c.Classify(textnorm.Normalize(text))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClassify_InvalidInput(t *testing.T) {
	c := newTestClassifier(t)

	_, err := c.Classify(string([]byte{0xff, 0x00, 0x01}))
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "one.", FirstSentence("one. two."))
	assert.Equal(t, "really?", FirstSentence("really? yes"))
	assert.Equal(t, "no terminator", FirstSentence("no terminator"))
	assert.Equal(t, "v1.2 released!", FirstSentence("v1.2 released! next"))
}
