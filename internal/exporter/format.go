package exporter

import (
	"strconv"

	"soilhub/internal/exceedance"
)

const (
	// PhaseColumn is the leading column of a CSV export naming the survey phase
	PhaseColumn = "조사구분"
	// ItemColumn holds the analyte name of each row
	ItemColumn = "항목"
	// CombinedLabel names the overview plus detailed table
	CombinedLabel = "통합"
)

// Section is one labelled table of an export
type Section struct {
	Label string
	Table exceedance.ResultTable
}

// Sections returns the phase tables of r in export order. The combined table
// is included only when withCombined is set.
func Sections(r *exceedance.PhaseReport, withCombined bool) []Section {
	sections := []Section{
		{Label: exceedance.PhaseOverview.Label(), Table: r.Overview},
		{Label: exceedance.PhaseDetailed.Label(), Table: r.Detailed},
	}
	if withCombined {
		sections = append(sections, Section{Label: CombinedLabel, Table: r.Combined})
	}
	return sections
}

// Header returns the column names of an analysis table:
//
//	항목, 1지역_지점수, 1지역_시료수, 1지역_최고, 1지역_우려기준_초과지점수, 1지역_우려기준_초과시료수, 2지역_...
func Header(levels []exceedance.CriteriaLevel) []string {
	header := []string{ItemColumn}
	for _, region := range exceedance.Regions {
		prefix := region.Label() + "_"
		header = append(header, prefix+"지점수", prefix+"시료수", prefix+"최고")
		for _, level := range levels {
			lp := prefix + level.Label() + "_"
			header = append(header, lp+"초과지점수", lp+"초과시료수")
		}
	}
	return header
}

// Cells returns the values of row in Header order. Counts are ints, a
// missing maximum is nil and a present one is a float64.
func Cells(row exceedance.AnalysisRow, levels []exceedance.CriteriaLevel) []any {
	cells := []any{row.Item}
	for _, region := range exceedance.Regions {
		stats := row.Region(region)
		var highest any
		if stats.Max != nil {
			highest = *stats.Max
		}
		cells = append(cells, stats.Sites, stats.Samples, highest)
		for _, level := range levels {
			lc := stats.Exceedance(level)
			cells = append(cells, lc.Sites, lc.Samples)
		}
	}
	return cells
}

// Record formats Cells as strings for text outputs
func Record(row exceedance.AnalysisRow, levels []exceedance.CriteriaLevel) []string {
	cells := Cells(row, levels)
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = formatCell(c)
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return formatInt(x)
	case float64:
		return formatFloat(x)
	default:
		return ""
	}
}

// formatFloat formats a measured value without rounding; 0.30 stays 0.3
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
