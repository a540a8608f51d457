package exceedance

import "sort"

// Diagnostics collects the data-quality conditions met while classifying and
// normalizing a dataset. None of them stop an analysis.
type Diagnostics struct {
	TotalRecords          int            `json:"total_records"`
	UnknownPhase          int            `json:"unknown_phase"`
	UnknownRegion         int            `json:"unknown_region"`
	DefaultedPhase        bool           `json:"defaulted_phase"`
	UnmatchedRegionLabels []string       `json:"unmatched_region_labels"`
	UnparseableCells      map[string]int `json:"unparseable_cells"`
	MissingItems          []string       `json:"missing_items"`
}

// HasIssues reports whether any condition was recorded
func (d Diagnostics) HasIssues() bool {
	return d.UnknownPhase > 0 || d.UnknownRegion > 0 ||
		len(d.UnparseableCells) > 0 || len(d.MissingItems) > 0
}

// UnparseableTotal sums the unparseable cells across all items
func (d Diagnostics) UnparseableTotal() int {
	total := 0
	for _, n := range d.UnparseableCells {
		total += n
	}
	return total
}

func (d Diagnostics) clone() Diagnostics {
	out := d
	out.UnmatchedRegionLabels = append([]string(nil), d.UnmatchedRegionLabels...)
	out.MissingItems = append([]string(nil), d.MissingItems...)
	if d.UnparseableCells != nil {
		out.UnparseableCells = make(map[string]int, len(d.UnparseableCells))
		for k, v := range d.UnparseableCells {
			out.UnparseableCells[k] = v
		}
	}
	return out
}

func (d *Diagnostics) addUnparseable(item string) {
	if d.UnparseableCells == nil {
		d.UnparseableCells = make(map[string]int)
	}
	d.UnparseableCells[item]++
}

func (d *Diagnostics) addMissing(ds *Dataset, items []string) {
	seen := make(map[string]struct{}, len(d.MissingItems))
	for _, item := range d.MissingItems {
		seen[item] = struct{}{}
	}
	for _, item := range items {
		if ds.HasColumn(item) {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		d.MissingItems = append(d.MissingItems, item)
	}
}

// unmatchedLabels returns the distinct labels in sorted order
func unmatchedLabels(labels map[string]struct{}) []string {
	out := make([]string, 0, len(labels))
	for l := range labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
