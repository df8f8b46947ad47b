// Package trends aggregates classified articles for reporting.
// All functions are pure and ignore unclassified articles unless noted.
package trends

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"github.com/poiesic/fraudlens/core"
)

// Count is a label with its number of occurrences.
type Count struct {
	Name  string
	Count int
}

// YearTop lists the most frequent fraud types of one year.
type YearTop struct {
	Year  int
	Types []Count
}

// DayCount is the number of fraud articles published on one UTC day.
type DayCount struct {
	Day   time.Time
	Count int
}

// TagFrequency counts fraud tags across articles, most frequent first.
// Ties are ordered by tag name.
func TagFrequency(articles []*core.Article) []Count {
	counts := make(map[string]int)
	for _, a := range articles {
		if !a.Classified {
			continue
		}
		for _, tag := range a.FraudTags {
			counts[tag]++
		}
	}
	return sortCounts(counts)
}

// FraudTypeFrequency counts primary fraud types, most frequent first.
// Articles without a fraud type are skipped.
func FraudTypeFrequency(articles []*core.Article) []Count {
	counts := make(map[string]int)
	for _, a := range articles {
		if isFraud(a) {
			counts[string(a.FraudType)]++
		}
	}
	return sortCounts(counts)
}

// TopFraudTypesByYear groups fraud articles by publication year and keeps the n most
// frequent types of each year. Years are returned in ascending order. n <= 0 keeps all.
func TopFraudTypesByYear(articles []*core.Article, n int) []YearTop {
	byYear := make(map[int]map[string]int)
	for _, a := range articles {
		if !isFraud(a) {
			continue
		}
		year := a.PublishedAt.UTC().Year()
		if byYear[year] == nil {
			byYear[year] = make(map[string]int)
		}
		byYear[year][string(a.FraudType)]++
	}

	out := make([]YearTop, 0, len(byYear))
	for _, year := range slices.Sorted(maps.Keys(byYear)) {
		types := sortCounts(byYear[year])
		if n > 0 && len(types) > n {
			types = types[:n]
		}
		out = append(out, YearTop{Year: year, Types: types})
	}
	return out
}

// DailyActivity counts fraud articles per UTC day within year, in day order.
// Days without articles are omitted. year == 0 covers every year.
func DailyActivity(articles []*core.Article, year int) []DayCount {
	counts := make(map[time.Time]int)
	for _, a := range articles {
		if !isFraud(a) {
			continue
		}
		t := a.PublishedAt.UTC()
		if year != 0 && t.Year() != year {
			continue
		}
		counts[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)]++
	}

	out := make([]DayCount, 0, len(counts))
	for day, c := range counts {
		out = append(out, DayCount{Day: day, Count: c})
	}
	slices.SortFunc(out, func(a, b DayCount) int {
		return a.Day.Compare(b.Day)
	})
	return out
}

func isFraud(a *core.Article) bool {
	return a.Classified && a.FraudType != core.FraudTypeNone
}

func sortCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
