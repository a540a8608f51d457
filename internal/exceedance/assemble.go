package exceedance

// PhaseReport holds the overview, detailed and combined tables of one
// analysis. Row i of every table refers to Items[i].
type PhaseReport struct {
	Items       []string        `json:"items"`
	Levels      []CriteriaLevel `json:"levels"`
	Overview    ResultTable     `json:"overview"`
	Detailed    ResultTable     `json:"detailed"`
	Combined    ResultTable     `json:"combined"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

// Variant names one of the tables of a PhaseReport
type Variant struct {
	Name   string
	Phases []SurveyPhase
}

// Variants lists the tables produced by Assemble, in report order
var Variants = []Variant{
	{Name: "overview", Phases: []SurveyPhase{PhaseOverview}},
	{Name: "detailed", Phases: []SurveyPhase{PhaseDetailed}},
	{Name: "combined", Phases: []SurveyPhase{PhaseOverview, PhaseDetailed}},
}

// Assemble aggregates ds once per variant and aligns the tables on items.
// opts.Phases is ignored; each variant supplies its own phase filter.
func Assemble(ds *Dataset, items []string, standards *StandardsTable, opts Options) (*PhaseReport, error) {
	ds = Normalize(ds, items)

	tables := make([]ResultTable, len(Variants))
	for i, v := range Variants {
		o := opts
		o.Phases = v.Phases
		t, err := Aggregate(ds, items, standards, o)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}

	return NewPhaseReport(items, opts.levels(), ds.Diagnostics, tables[0], tables[1], tables[2]), nil
}

// NewPhaseReport builds a report from tables computed elsewhere, reordering
// each table to follow items.
func NewPhaseReport(items []string, levels []CriteriaLevel, diag Diagnostics, overview, detailed, combined ResultTable) *PhaseReport {
	return &PhaseReport{
		Items:       append([]string(nil), items...),
		Levels:      append([]CriteriaLevel(nil), levels...),
		Overview:    AlignRows(items, levels, overview),
		Detailed:    AlignRows(items, levels, detailed),
		Combined:    AlignRows(items, levels, combined),
		Diagnostics: diag,
	}
}

// Table returns the table for the variant name, or nil
func (r *PhaseReport) Table(name string) ResultTable {
	switch name {
	case "overview":
		return r.Overview
	case "detailed":
		return r.Detailed
	case "combined":
		return r.Combined
	default:
		return nil
	}
}

// AlignRows returns rows reordered to match items. Items without a row get
// an empty row so the result always has len(items) entries.
func AlignRows(items []string, levels []CriteriaLevel, rows ResultTable) ResultTable {
	byItem := make(map[string]AnalysisRow, len(rows))
	for _, row := range rows {
		if _, dup := byItem[row.Item]; !dup {
			byItem[row.Item] = row
		}
	}

	out := make(ResultTable, len(items))
	for i, item := range items {
		if row, ok := byItem[item]; ok {
			out[i] = row
			continue
		}
		out[i] = emptyRow(item, levels)
	}
	return out
}

func emptyRow(item string, levels []CriteriaLevel) AnalysisRow {
	row := AnalysisRow{Item: item, Regions: make([]RegionStats, 0, len(Regions))}
	for _, region := range Regions {
		stats := RegionStats{Region: region, Exceedances: make([]LevelCount, 0, len(levels))}
		for _, level := range levels {
			stats.Exceedances = append(stats.Exceedances, LevelCount{Level: level})
		}
		row.Regions = append(row.Regions, stats)
	}
	return row
}
