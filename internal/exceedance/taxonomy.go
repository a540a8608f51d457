package exceedance

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// ItemGroup is a named family of analysed items, e.g. heavy metals
type ItemGroup struct {
	Name  string   `yaml:"name" json:"name"`
	Items []string `yaml:"items" json:"items"`
}

// RegionRule assigns Region when a label contains the substring
type RegionRule struct {
	Contains string `yaml:"contains" json:"contains"`
	Region   Region `yaml:"region" json:"region"`
}

// LevelRule assigns Level when a standards label contains the substring.
// An empty Contains matches any non-empty label.
type LevelRule struct {
	Contains string        `yaml:"contains" json:"contains"`
	Level    CriteriaLevel `yaml:"level" json:"level"`
}

// Taxonomy is the domain vocabulary the engine classifies with. Everything
// here can be replaced per deployment without touching the engine.
type Taxonomy struct {
	PhaseColumnKeys  []string     `yaml:"phase_column_keys"`
	OverviewKeys     []string     `yaml:"overview_keys"`
	DetailedKeys     []string     `yaml:"detailed_keys"`
	RegionColumnKeys []string     `yaml:"region_column_keys"`
	RegionRules      []RegionRule `yaml:"region_rules"`
	SiteIDColumns    []string     `yaml:"site_id_columns"`
	LevelRules       []LevelRule  `yaml:"level_rules"`
	Groups           []ItemGroup  `yaml:"groups"`
}

// DefaultTaxonomy returns the vocabulary of the national soil survey forms
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		PhaseColumnKeys:  []string{"조사"},
		OverviewKeys:     []string{"개황"},
		DetailedKeys:     []string{"정밀", "상세"},
		RegionColumnKeys: []string{"지목", "지역"},
		RegionRules: []RegionRule{
			{Contains: "1", Region: Region1},
			{Contains: "2", Region: Region2},
			{Contains: "3", Region: Region3},
		},
		SiteIDColumns: []string{"시료명", "지점명"},
		LevelRules: []LevelRule{
			{Contains: "40", Level: Concern40},
			{Contains: "", Level: ConcernStandard},
		},
		Groups: []ItemGroup{
			{Name: "중금속", Items: []string{
				"Cd(mg/kg)", "Cu(mg/kg)", "As(mg/kg)", "Hg(mg/kg)",
				"Pb(mg/kg)", "Cr6+(mg/kg)", "Zn(mg/kg)", "Ni(mg/kg)",
			}},
			{Name: "유류", Items: []string{"Benzene", "Toluene", "Ethylbenzene", "Xylene", "TPH"}},
			{Name: "유기용제", Items: []string{"TCE", "PCE", "1,2DCA (1,2-디클로로에탄)"}},
			{Name: "기타", Items: []string{
				"F(mg/kg)", "PCBs(mg/kg)", "CN(mg/kg)", "Phenol(mg/kg)",
				"Pentachlorophenol(mg/kg)", "Dioxin", "pH",
			}},
		},
	}
}

// LoadTaxonomy reads a YAML taxonomy file. Sections absent from the file keep
// their default values.
func LoadTaxonomy(path string) (Taxonomy, error) {
	tax := DefaultTaxonomy()

	data, err := os.ReadFile(path)
	if err != nil {
		return tax, fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	var override Taxonomy
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tax, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}

	merge := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	merge(&tax.PhaseColumnKeys, override.PhaseColumnKeys)
	merge(&tax.OverviewKeys, override.OverviewKeys)
	merge(&tax.DetailedKeys, override.DetailedKeys)
	merge(&tax.RegionColumnKeys, override.RegionColumnKeys)
	merge(&tax.SiteIDColumns, override.SiteIDColumns)
	if len(override.RegionRules) > 0 {
		tax.RegionRules = override.RegionRules
	}
	if len(override.LevelRules) > 0 {
		tax.LevelRules = override.LevelRules
	}
	if len(override.Groups) > 0 {
		tax.Groups = override.Groups
	}

	if err := tax.Validate(); err != nil {
		return tax, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// Validate checks that the taxonomy can classify anything at all
func (t Taxonomy) Validate() error {
	if len(t.RegionColumnKeys) == 0 {
		return fmt.Errorf("region_column_keys must not be empty")
	}
	if len(t.RegionRules) == 0 {
		return fmt.Errorf("region_rules must not be empty")
	}
	for i, r := range t.RegionRules {
		if r.Contains == "" || r.Region == RegionUnknown {
			return fmt.Errorf("region_rules[%d]: contains and region are required", i)
		}
	}
	if len(t.LevelRules) == 0 {
		return fmt.Errorf("level_rules must not be empty")
	}
	for i, r := range t.LevelRules {
		if r.Level < Concern40 || r.Level > CountermeasureStandard {
			return fmt.Errorf("level_rules[%d]: unknown level", i)
		}
	}
	return nil
}

// WithLevelLabel returns a copy whose level rules map labels containing
// substr to level. The rule is placed ahead of any catch-all rule so it can
// take effect.
func (t Taxonomy) WithLevelLabel(substr string, level CriteriaLevel) Taxonomy {
	rules := make([]LevelRule, 0, len(t.LevelRules)+1)
	inserted := false
	for _, r := range t.LevelRules {
		if r.Contains == "" && !inserted {
			rules = append(rules, LevelRule{Contains: substr, Level: level})
			inserted = true
		}
		rules = append(rules, r)
	}
	if !inserted {
		rules = append(rules, LevelRule{Contains: substr, Level: level})
	}
	t.LevelRules = rules
	return t
}

// Items flattens the groups into one list, keeping group order
func (t Taxonomy) Items() []string {
	var items []string
	seen := make(map[string]struct{})
	for _, g := range t.Groups {
		for _, item := range g.Items {
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			items = append(items, item)
		}
	}
	return items
}

// ClassifyPhase maps a raw phase label onto a SurveyPhase
func (t Taxonomy) ClassifyPhase(label string) SurveyPhase {
	if containsAny(label, t.OverviewKeys) {
		return PhaseOverview
	}
	if containsAny(label, t.DetailedKeys) {
		return PhaseDetailed
	}
	return PhaseUnknown
}

// ClassifyRegion maps a raw region label onto a Region. The first matching
// rule wins, so with the default rules "혼합1,2" is Region1.
func (t Taxonomy) ClassifyRegion(label string) Region {
	for _, rule := range t.RegionRules {
		if strings.Contains(label, rule.Contains) {
			return rule.Region
		}
	}
	return RegionUnknown
}

// ClassifyLevel maps a standards criteria label onto a CriteriaLevel
func (t Taxonomy) ClassifyLevel(label string) (CriteriaLevel, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}
	for _, rule := range t.LevelRules {
		if rule.Contains == "" || strings.Contains(label, rule.Contains) {
			return rule.Level, true
		}
	}
	return 0, false
}

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// UnmarshalYAML accepts the string form of a region ("region1") or its Korean label
func (r *Region) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	for _, candidate := range Regions {
		if s == candidate.String() || s == candidate.Label() {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown region %q", s)
}

// UnmarshalYAML accepts the string form of a level ("concern40") or its Korean label
func (l *CriteriaLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	for _, candidate := range AllLevels {
		if s == candidate.String() || s == candidate.Label() {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown criteria level %q", s)
}
