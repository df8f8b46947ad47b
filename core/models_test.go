package core

import (
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "url", content: "https://www.consumerfinance.gov/about-us/newsroom/example/"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestRawArticle_ArticleID(t *testing.T) {
	date := time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)

	t.Run("uses url when present", func(t *testing.T) {
		a := RawArticle{Title: "A", URL: "https://example.gov/a", Date: date}
		b := RawArticle{Title: "B", URL: "https://example.gov/a", Date: date.AddDate(0, 1, 0)}
		if a.ArticleID() != b.ArticleID() {
			t.Errorf("expected same ID for same URL")
		}
	})

	t.Run("falls back to title and date", func(t *testing.T) {
		a := RawArticle{Title: "A", Date: date}
		b := RawArticle{Title: "A", Date: date.Add(3 * time.Hour)}
		c := RawArticle{Title: "A", Date: date.AddDate(0, 0, 1)}
		if a.ArticleID() != b.ArticleID() {
			t.Errorf("expected same ID for same title and day")
		}
		if a.ArticleID() == c.ArticleID() {
			t.Errorf("expected different ID for different day")
		}
	})
}

func TestCalendarUTC(t *testing.T) {
	eastern := time.FixedZone("EST", -5*60*60)
	in := time.Date(2023, time.December, 31, 22, 30, 0, 0, eastern)

	got := CalendarUTC(in)
	want := time.Date(2023, time.December, 31, 22, 30, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("CalendarUTC() = %v, want %v", got, want)
	}
	if got.Year() != 2023 {
		t.Errorf("CalendarUTC() moved the date into %d", got.Year())
	}

	a := RawArticle{Title: "A", Date: in}
	b := RawArticle{Title: "A", Date: want}
	if a.ArticleID() != b.ArticleID() {
		t.Errorf("expected same ID for the same calendar day")
	}
}

func TestArticle_HasTag(t *testing.T) {
	a := &Article{FraudTags: []string{"zelle_fraud", "ach_error"}}
	if !a.HasTag("ach_error") {
		t.Errorf("expected ach_error tag")
	}
	if a.HasTag("phishing") {
		t.Errorf("unexpected phishing tag")
	}
}

func TestSourceRoundTrip(t *testing.T) {
	for _, s := range []Source{SourceNewsroom, SourceBlog, SourceEnforcement} {
		parsed, err := ParseSource(s.String())
		if err != nil {
			t.Fatalf("ParseSource(%q) error: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("ParseSource(%q) = %v, want %v", s.String(), parsed, s)
		}
	}

	if _, err := ParseSource("podcast"); err == nil {
		t.Errorf("expected error for unknown source")
	}
}
