package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/fraudlens/core"
)

const (
	formatJSONL = "jsonl"
	formatCSV   = "csv"

	maxLineBytes = 16 << 20
)

var errUnknownFormat = errors.New("unknown input format")

// scrapedArticle is one record of scraper output. Dates may be RFC 3339 or a bare date.
type scrapedArticle struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	Source string `json:"source"`
	URL    string `json:"url"`
	Text   string `json:"text"`
}

func (s scrapedArticle) raw() (*core.RawArticle, error) {
	date, err := parseDate(s.Date)
	if err != nil {
		return nil, err
	}
	source := core.SourceNewsroom
	if strings.TrimSpace(s.Source) != "" {
		if source, err = core.ParseSource(s.Source); err != nil {
			return nil, err
		}
	}
	return &core.RawArticle{
		Title:  strings.TrimSpace(s.Title),
		Date:   date,
		Source: source,
		URL:    strings.TrimSpace(s.URL),
		Text:   s.Text,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return core.CalendarUTC(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", core.ErrInvalidInput, s)
}

// formatFromPath infers the input format from the file extension.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV
	default:
		return formatJSONL
	}
}

// readArticles parses scraper output in the given format.
func readArticles(r io.Reader, format string) ([]*core.RawArticle, error) {
	switch strings.ToLower(format) {
	case formatJSONL, "json", "ndjson":
		return readJSONL(r)
	case formatCSV:
		return readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func readJSONL(r io.Reader) ([]*core.RawArticle, error) {
	var articles []*core.RawArticle
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec scrapedArticle
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw, err := rec.raw()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		articles = append(articles, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

// readCSV expects a header row naming at least title, date and text.
func readCSV(r io.Reader) ([]*core.RawArticle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"title", "date", "text"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: csv header is missing column %q", core.ErrInvalidInput, required)
		}
	}

	field := func(record []string, name string) string {
		if i, ok := index[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	var articles []*core.RawArticle
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw, err := scrapedArticle{
			Title:  field(record, "title"),
			Date:   field(record, "date"),
			Source: field(record, "source"),
			URL:    field(record, "url"),
			Text:   field(record, "text"),
		}.raw()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		articles = append(articles, raw)
	}
	return articles, nil
}
