package exceedance

import "strings"

// Classify attaches a survey phase and region to every row of t.
//
// A missing phase column is tolerated and every record becomes an overview
// record. A missing region column is a ConfigError.
func Classify(t Table, tax Taxonomy) (*Dataset, error) {
	header := NormalizeHeader(t.Header)

	ds := &Dataset{
		Columns:   header,
		columnSet: make(map[string]struct{}, len(header)),
	}
	for _, h := range header {
		ds.columnSet[h] = struct{}{}
	}

	regionIdx := findColumn(header, tax.RegionColumnKeys)
	if regionIdx < 0 {
		return nil, &ConfigError{Op: "classify", Err: ErrRegionColumnNotFound, Columns: header}
	}
	ds.RegionColumn = header[regionIdx]

	phaseIdx := findColumn(header, tax.PhaseColumnKeys)
	if phaseIdx >= 0 {
		ds.PhaseColumn = header[phaseIdx]
	} else {
		ds.Diagnostics.DefaultedPhase = true
	}

	siteIdx := -1
	for _, name := range tax.SiteIDColumns {
		if i := indexOf(header, name); i >= 0 {
			siteIdx = i
			ds.SiteColumn = name
			break
		}
	}

	unmatched := make(map[string]struct{})
	ds.Records = make([]Record, 0, len(t.Rows))
	for n, row := range t.Rows {
		rec := Record{
			Row:         n + 1,
			RegionLabel: cell(row, regionIdx),
			Cells:       make(map[string]string, len(header)),
		}
		for i, h := range header {
			rec.Cells[h] = cell(row, i)
		}

		if phaseIdx >= 0 {
			rec.PhaseLabel = cell(row, phaseIdx)
			rec.Phase = tax.ClassifyPhase(rec.PhaseLabel)
		} else {
			rec.Phase = PhaseOverview
		}
		if siteIdx >= 0 {
			rec.SiteID = cell(row, siteIdx)
		}
		rec.Region = tax.ClassifyRegion(rec.RegionLabel)

		if rec.Phase == PhaseUnknown {
			ds.Diagnostics.UnknownPhase++
		}
		if rec.Region == RegionUnknown {
			ds.Diagnostics.UnknownRegion++
			unmatched[rec.RegionLabel] = struct{}{}
		}
		ds.Records = append(ds.Records, rec)
	}

	ds.Diagnostics.TotalRecords = len(ds.Records)
	ds.Diagnostics.UnmatchedRegionLabels = unmatchedLabels(unmatched)
	return ds, nil
}

// NormalizeHeader trims whitespace and embedded line breaks from header
// cells. Spreadsheet headers often wrap, e.g. "Cd\n(mg/kg)".
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.NewReplacer("\r", "", "\n", "").Replace(h)
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// findColumn returns the first header containing any of keys
func findColumn(header []string, keys []string) int {
	for i, h := range header {
		if containsAny(h, keys) {
			return i
		}
	}
	return -1
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
