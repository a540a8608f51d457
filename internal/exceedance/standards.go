package exceedance

import (
	"strconv"
	"strings"
)

type thresholdKey struct {
	region Region
	level  CriteriaLevel
	item   string
}

// StandardsTable maps (region, criteria level, item) to a threshold. It is
// never modified after LoadStandards returns, so one table may be shared by
// concurrent aggregations.
type StandardsTable struct {
	items      []string
	thresholds map[thresholdKey]float64
	levels     map[CriteriaLevel]struct{}

	// SkippedRows counts rows dropped for a blank or unrecognised region or label
	SkippedRows int
}

// LoadStandards builds a StandardsTable from a table whose first column is the
// region, second column the criteria label and remaining columns item
// thresholds. Blank or non-numeric threshold cells are left out.
func LoadStandards(t Table, tax Taxonomy) (*StandardsTable, error) {
	header := NormalizeHeader(t.Header)
	if len(header) < 3 {
		return nil, &ConfigError{Op: "load standards", Err: ErrStandardsMalformed, Columns: header}
	}

	st := &StandardsTable{
		items:      make([]string, 0, len(header)-2),
		thresholds: make(map[thresholdKey]float64),
		levels:     make(map[CriteriaLevel]struct{}),
	}
	for _, item := range header[2:] {
		if item != "" {
			st.items = append(st.items, item)
		}
	}

	for _, row := range t.Rows {
		regionLabel, levelLabel := cell(row, 0), cell(row, 1)
		if regionLabel == "" || levelLabel == "" {
			st.SkippedRows++
			continue
		}

		region := tax.ClassifyRegion(regionLabel)
		level, ok := tax.ClassifyLevel(levelLabel)
		if region == RegionUnknown || !ok {
			st.SkippedRows++
			continue
		}

		st.levels[level] = struct{}{}
		for i := 2; i < len(header); i++ {
			if header[i] == "" {
				continue
			}
			v, ok := parseThreshold(cell(row, i))
			if !ok {
				continue
			}
			st.thresholds[thresholdKey{region, level, header[i]}] = v
		}
	}

	return st, nil
}

// parseThreshold accepts plain numbers only; thousands separators are allowed
func parseThreshold(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Threshold returns the threshold for the triple, if one was recorded
func (s *StandardsTable) Threshold(region Region, level CriteriaLevel, item string) (float64, bool) {
	v, ok := s.thresholds[thresholdKey{region, level, item}]
	return v, ok
}

// Items returns the item columns of the standards source in column order
func (s *StandardsTable) Items() []string {
	return append([]string(nil), s.items...)
}

// ItemsFor returns the items holding a threshold for region and level, in
// column order
func (s *StandardsTable) ItemsFor(region Region, level CriteriaLevel) []string {
	var out []string
	for _, item := range s.items {
		if _, ok := s.thresholds[thresholdKey{region, level, item}]; ok {
			out = append(out, item)
		}
	}
	return out
}

// HasLevel reports whether any row of the source mapped to level
func (s *StandardsTable) HasLevel(level CriteriaLevel) bool {
	_, ok := s.levels[level]
	return ok
}

// Len returns the number of thresholds recorded
func (s *StandardsTable) Len() int {
	return len(s.thresholds)
}
