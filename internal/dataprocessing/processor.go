package dataprocessing

import (
	"fmt"
	"strings"

	"soilhub/internal/exceedance"
)

// CleanStats counts the adjustments Clean made to a raw table
type CleanStats struct {
	PaddedRows    int `json:"padded_rows"`
	TruncatedRows int `json:"truncated_rows"`
	BlankRows     int `json:"blank_rows"`
	RenamedCols   int `json:"renamed_columns"`
	DuplicateCols int `json:"duplicate_columns"`
}

// Clean turns raw rows into a rectangular table.
//
// Header cells are trimmed and lose embedded line breaks; blank header cells
// become "Unnamed: N" with N the zero-based column index, and a repeated
// name gets a ".1", ".2" ... suffix. Rows with no non-blank cell are dropped.
// Short rows are padded with blanks; trailing blank cells past the widest
// column are discarded.
func Clean(header []string, rows [][]string) (exceedance.Table, CleanStats) {
	var stats CleanStats

	width := len(header)
	for _, row := range rows {
		// trailing cells under an absent header still need a column
		if n := lastNonBlank(row) + 1; n > width {
			width = n
		}
	}

	cols := exceedance.NormalizeHeader(header)
	for len(cols) < width {
		cols = append(cols, "")
	}
	for i, c := range cols {
		if c == "" {
			cols[i] = fmt.Sprintf("Unnamed: %d", i)
			stats.RenamedCols++
		}
	}
	stats.DuplicateCols = dedupe(cols)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if lastNonBlank(row) < 0 {
			stats.BlankRows++
			continue
		}

		switch {
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			row = padded
			stats.PaddedRows++
		case len(row) > width:
			row = row[:width]
			stats.TruncatedRows++
		}
		out = append(out, row)
	}

	return exceedance.Table{Header: cols, Rows: out}, stats
}

// dedupe renames repeated column names in place and returns how many it renamed
func dedupe(cols []string) int {
	taken := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		taken[c] = struct{}{}
	}

	seen := make(map[string]int, len(cols))
	renamed := 0
	for i, c := range cols {
		n, dup := seen[c]
		if !dup {
			seen[c] = 0
			continue
		}
		for {
			n++
			candidate := fmt.Sprintf("%s.%d", c, n)
			if _, clash := taken[candidate]; !clash {
				cols[i] = candidate
				taken[candidate] = struct{}{}
				break
			}
		}
		seen[c] = n
		renamed++
	}
	return renamed
}

func lastNonBlank(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if strings.TrimSpace(row[i]) != "" {
			return i
		}
	}
	return -1
}

// Preview returns the header and at most limit rows of t. A limit of zero or
// less returns every row.
func Preview(t exceedance.Table, limit int) exceedance.Table {
	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return exceedance.Table{
		Header: append([]string(nil), t.Header...),
		Rows:   rows,
	}
}
