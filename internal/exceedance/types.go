package exceedance

// SurveyPhase identifies which sampling campaign a record belongs to
type SurveyPhase int

const (
	// PhaseUnknown is assigned when the phase label matches no known campaign
	PhaseUnknown SurveyPhase = iota
	// PhaseOverview is the initial broad survey (개황조사)
	PhaseOverview
	// PhaseDetailed is the follow-up detailed survey (정밀조사)
	PhaseDetailed
)

// String returns the string representation of the phase
func (p SurveyPhase) String() string {
	switch p {
	case PhaseOverview:
		return "overview"
	case PhaseDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// Label returns the Korean report label used in exports
func (p SurveyPhase) Label() string {
	switch p {
	case PhaseOverview:
		return "개황(A)"
	case PhaseDetailed:
		return "정밀(B)"
	default:
		return "미분류"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p SurveyPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Region is the land-use zoning class of a sampled site
type Region int

const (
	// RegionUnknown is assigned when the region label matches no rule
	RegionUnknown Region = iota
	// Region1 is 1지역
	Region1
	// Region2 is 2지역
	Region2
	// Region3 is 3지역
	Region3
)

// Regions lists the regions that take part in aggregation, in report order
var Regions = [...]Region{Region1, Region2, Region3}

// String returns the string representation of the region
func (r Region) String() string {
	switch r {
	case Region1:
		return "region1"
	case Region2:
		return "region2"
	case Region3:
		return "region3"
	default:
		return "unknown"
	}
}

// Label returns the Korean report label used in exports
func (r Region) Label() string {
	switch r {
	case Region1:
		return "1지역"
	case Region2:
		return "2지역"
	case Region3:
		return "3지역"
	default:
		return "미분류"
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Region) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// CriteriaLevel is a regulatory severity tier
type CriteriaLevel int

const (
	// Concern40 is 40% of the concern standard (우려기준 40%)
	Concern40 CriteriaLevel = iota + 1
	// ConcernStandard is the soil contamination concern standard (우려기준)
	ConcernStandard
	// CountermeasureStandard is the countermeasure standard (대책기준)
	CountermeasureStandard
)

// AllLevels lists every criteria level in severity order
var AllLevels = []CriteriaLevel{Concern40, ConcernStandard, CountermeasureStandard}

// String returns the string representation of the level
func (l CriteriaLevel) String() string {
	switch l {
	case Concern40:
		return "concern40"
	case ConcernStandard:
		return "concern"
	case CountermeasureStandard:
		return "countermeasure"
	default:
		return "unknown"
	}
}

// Label returns the Korean report label used in exports
func (l CriteriaLevel) Label() string {
	switch l {
	case Concern40:
		return "우려40"
	case ConcernStandard:
		return "우려기준"
	case CountermeasureStandard:
		return "대책기준"
	default:
		return "미분류"
	}
}

// MarshalText implements encoding.TextMarshaler
func (l CriteriaLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseCriteriaLevel converts the string form of a level back to its value
func ParseCriteriaLevel(s string) (CriteriaLevel, bool) {
	for _, l := range AllLevels {
		if l.String() == s {
			return l, true
		}
	}
	return 0, false
}

// CountMode selects how the site count of a region is derived
type CountMode int

const (
	// CountAuto counts distinct site identifiers when the dataset has an
	// identifier column and falls back to raw rows otherwise
	CountAuto CountMode = iota
	// CountSamples always counts raw rows
	CountSamples
)

// String returns the string representation of the mode
func (m CountMode) String() string {
	if m == CountSamples {
		return "samples"
	}
	return "auto"
}

// ParseCountMode converts "auto" or "samples" into a CountMode
func ParseCountMode(s string) (CountMode, bool) {
	switch s {
	case "", "auto":
		return CountAuto, true
	case "samples":
		return CountSamples, true
	default:
		return CountAuto, false
	}
}

// Table is a rectangular table as delivered by the ingestion layer
type Table struct {
	Header []string
	Rows   [][]string
}

// Record is one sampled observation with its classification attached.
// Values holds the normalized cells of the items passed to Normalize.
// Records are not modified after Classify or Normalize returns them.
type Record struct {
	Row         int
	PhaseLabel  string
	RegionLabel string
	SiteID      string
	Phase       SurveyPhase
	Region      Region
	Cells       map[string]string
	Values      map[string]*float64
}

// Dataset is a classified record set together with the column facts that
// aggregation decides once per request.
type Dataset struct {
	Columns      []string
	PhaseColumn  string
	RegionColumn string
	SiteColumn   string
	Records      []Record
	Diagnostics  Diagnostics

	columnSet map[string]struct{}
}

// HasSiteID reports whether a site/sample identifier column was found
func (d *Dataset) HasSiteID() bool {
	return d.SiteColumn != ""
}

// value returns the normalized value of item for record i
func (d *Dataset) value(i int, item string) *float64 {
	rec := &d.Records[i]
	if v, ok := rec.Values[item]; ok {
		return v
	}
	return NormalizeString(rec.Cells[item])
}

// HasColumn reports whether the dataset carries the named column
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.columnSet[name]
	return ok
}

// LevelCount is the exceedance tally of one criteria level within a region
type LevelCount struct {
	Level     CriteriaLevel `json:"level"`
	Threshold *float64      `json:"threshold"`
	Sites     int           `json:"sites"`
	Samples   int           `json:"samples"`
}

// RegionStats holds the per-region figures of an analysis row
type RegionStats struct {
	Region      Region       `json:"region"`
	Sites       int          `json:"sites"`
	Samples     int          `json:"samples"`
	Max         *float64     `json:"max"`
	Exceedances []LevelCount `json:"exceedances"`
}

// Exceedance returns the tally for the given level, or a zero tally
func (s RegionStats) Exceedance(level CriteriaLevel) LevelCount {
	for _, lc := range s.Exceedances {
		if lc.Level == level {
			return lc
		}
	}
	return LevelCount{Level: level}
}

// AnalysisRow is the result for one requested item
type AnalysisRow struct {
	Item    string        `json:"item"`
	Regions []RegionStats `json:"regions"`
}

// Region returns the stats for r, or zero stats when r is not present
func (a AnalysisRow) Region(r Region) RegionStats {
	for _, s := range a.Regions {
		if s.Region == r {
			return s
		}
	}
	return RegionStats{Region: r}
}

// ResultTable is a sequence of rows in caller-requested item order
type ResultTable []AnalysisRow
