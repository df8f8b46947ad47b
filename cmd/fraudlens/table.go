package main

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// column is a table column; max caps its display width, 0 leaves it unbounded.
type column struct {
	title string
	max   int
}

// table renders aligned plain-text rows, measuring cells by terminal display width.
type table struct {
	columns []column
	rows    [][]string
}

func newTable(columns ...column) *table {
	return &table{columns: columns}
}

func (t *table) add(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *table) render(w io.Writer) error {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = runewidth.StringWidth(col.title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for i, col := range t.columns {
		if col.max > 0 {
			widths[i] = min(widths[i], col.max)
		}
	}

	header := make([]string, len(t.columns))
	for i, col := range t.columns {
		header[i] = col.title
	}
	if err := t.line(w, header, widths); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := t.line(w, row, widths); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) line(w io.Writer, cells []string, widths []int) error {
	var b strings.Builder
	last := len(cells) - 1
	for i, cell := range cells {
		cell = runewidth.Truncate(cell, widths[i], "...")
		if i < last {
			cell = runewidth.FillRight(cell, widths[i]) + "  "
		}
		b.WriteString(cell)
	}
	_, err := io.WriteString(w, strings.TrimRight(b.String(), " ")+"\n")
	return err
}
