package textnorm

import (
	"testing"

	"github.com/poiesic/fraudlens/core"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "  \t\n  ", want: ""},
		{name: "lower-cases and collapses", in: "The  Bureau\n\tFiled   a Complaint", want: "the bureau filed a complaint"},
		{name: "strips urls", in: "Read more at https://www.consumerfinance.gov/x?y=1 today", want: "read more at today"},
		{name: "strips www urls", in: "see www.example.com/path now", want: "see now"},
		{name: "strips html tags", in: "<p>Unauthorized <b>transfers</b></p>", want: "unauthorized transfers"},
		{name: "decodes entities", in: "Fees &amp; charges", want: "fees & charges"},
		{name: "escaped tags are removed", in: "&lt;script&gt;alert&lt;/script&gt;", want: "alert"},
		{name: "markdown link keeps anchor", in: "See [the order](https://example.gov/order) here", want: "see the order here"},
		{name: "markdown emphasis", in: "**Zelle** _fraud_ `code`", want: "zelle fraud code"},
		{name: "markup only", in: "<br/><hr>", want: ""},
		{name: "escaped markdown link", in: "&#91;see here&#93;(x)", want: "see here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"The Bureau filed a complaint alleging unauthorized transfers via Zelle",
		"<div>CFPB &amp; partners [announce](http://x.y) **action**</div>",
		"&amp;lt;b&amp;gt;nested&amp;lt;/b&amp;gt;",
		"[[a](b)](c)",
		"&#91;see here&#93;(x)",
		"&#60;b&#62;Zelle&#60;/b&#62; &NBSP;transfers",
		"",
	}

	n := NewNormalizer()
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	in := "Wire FRAUD   alert: https://example.com"
	assert.Equal(t, Normalize(in), Normalize(in))
	assert.Equal(t, "wire fraud alert:", Normalize(in))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"zelle fraud", 5, "zelle"},
		{"short", 10, "short"},
		{"anything", 0, "anything"},
		{"añejo", 2, "añ"},
		{"日本語テキスト", 3, "日本語"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.limit), "Truncate(%q, %d)", tt.in, tt.limit)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("Unauthorized transfers via Zelle\n\tand ACH"))
	assert.NoError(t, Validate(""))
	assert.ErrorIs(t, Validate("bad \xff byte"), core.ErrInvalidInput)
	assert.ErrorIs(t, Validate("nul\x00byte"), core.ErrInvalidInput)
}
