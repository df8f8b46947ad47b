package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// EmbeddingDimensions is the fixed length of every stored embedding vector.
const EmbeddingDimensions = 1536

// ID is a unique identifier for domain entities.
// Article IDs are derived from content so resubmitted articles map to the same record.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// FraudType is the single primary category assigned to an article.
// The zero value means no category matched.
type FraudType string

// FraudTypeNone marks an article for which no rule matched.
const FraudTypeNone FraudType = ""

// Prediction is the output of the auxiliary ML classifier.
type Prediction struct {
	Category   FraudType
	Confidence float64
}

// RawArticle is an article as produced by the scraper, before any processing.
type RawArticle struct {
	Title  string    `json:"title"`
	Date   time.Time `json:"date"`
	Source Source    `json:"source"`
	URL    string    `json:"url"`
	Text   string    `json:"text"`
}

// ArticleID returns the content-derived identifier for the raw article.
// The URL is used when present; otherwise the title and date identify the article.
func (r *RawArticle) ArticleID() ID {
	if r.URL != "" {
		return IDFromContent(r.URL)
	}
	return IDFromContent(r.Title + "|" + r.Date.Format(time.DateOnly))
}

// CalendarUTC returns t's wall-clock reading, date and time of day, in UTC.
// Publication dates keep the calendar day the publisher printed, so a late
// evening in a negative offset does not move into the next day or year.
func CalendarUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Article is a regulatory article enriched by classification and embedding.
type Article struct {
	Id             ID
	Title          string
	PublishedAt    time.Time
	Source         Source
	URL            string
	Text           string
	NormalizedText string
	FraudType      FraudType
	FraudTags      []string
	Summary        string
	Classified     bool        // Set once the classification stage has run
	Embedding      []float32   // Present only after the embedding stage
	Prediction     *Prediction // Optional ML prediction
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// HasEmbedding reports whether the article completed the embedding stage.
func (a *Article) HasEmbedding() bool {
	return len(a.Embedding) > 0
}

// HasTag reports whether the article carries the given fraud tag.
func (a *Article) HasTag(tag string) bool {
	for _, t := range a.FraudTags {
		if t == tag {
			return true
		}
	}
	return false
}

// QueryCacheEntry maps a normalized-text hash to its embedding.
// Entries are written once and never mutated.
type QueryCacheEntry struct {
	Key       string
	Embedding []float32
	CreatedAt time.Time
}

// Checkpoint records how far a long-running job got.
type Checkpoint struct {
	ProcessorType string
	LastID        ID
	UpdatedAt     time.Time
}

// SimilarityMatch is a single (article, score) pair returned by a store's similarity query.
type SimilarityMatch struct {
	ArticleId ID
	Score     float32
}

// SearchFilters restrict a similarity search.
type SearchFilters struct {
	// Year keeps only articles published in the given year. Zero disables the filter.
	Year int

	// Keyword keeps only articles whose raw or normalized text contains it (case-insensitive).
	Keyword string

	// MinSimilarity drops results scoring below the threshold. Nil disables the filter.
	MinSimilarity *float32
}

// Threshold returns a pointer suitable for SearchFilters.MinSimilarity.
func Threshold(v float32) *float32 {
	return &v
}

// SearchResult is a ranked article returned by a similarity search.
type SearchResult struct {
	Article *Article
	Score   float32
	Rank    int  // 1-based
	Alert   bool // Set by the caller when an alert evaluator flags the article
}
