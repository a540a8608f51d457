package exceedance

// Options selects which records and levels an aggregation covers. The zero
// value aggregates overview and detailed records against every level with
// site counting decided by the dataset.
type Options struct {
	// Phases restricts the records to these phases. Empty means every known
	// phase. PhaseUnknown is never aggregated.
	Phases []SurveyPhase
	// Levels lists the criteria levels to tally, in output order. Empty means AllLevels.
	Levels []CriteriaLevel
	// CountMode decides between distinct site identifiers and raw rows
	CountMode CountMode
}

func (o Options) levels() []CriteriaLevel {
	if len(o.Levels) == 0 {
		return AllLevels
	}
	return o.Levels
}

func (o Options) includes(p SurveyPhase) bool {
	if p == PhaseUnknown {
		return false
	}
	if len(o.Phases) == 0 {
		return true
	}
	for _, want := range o.Phases {
		if want == p {
			return true
		}
	}
	return false
}

// Aggregate computes one AnalysisRow per item, in the order given.
//
// Items that are not columns of ds, and empty datasets, produce rows with
// zero counts and nil maxima. A nil standards table is a ConfigError.
func Aggregate(ds *Dataset, items []string, standards *StandardsTable, opts Options) (ResultTable, error) {
	if standards == nil {
		return nil, &ConfigError{Op: "aggregate", Err: ErrStandardsUnavailable}
	}

	levels := opts.levels()
	useSiteID := ds != nil && ds.HasSiteID() && opts.CountMode == CountAuto

	// record indexes per region, built once and shared by every item
	var byRegion [len(Regions)][]int
	if ds != nil {
		for i, rec := range ds.Records {
			if rec.Region == RegionUnknown || !opts.includes(rec.Phase) {
				continue
			}
			byRegion[int(rec.Region)-1] = append(byRegion[int(rec.Region)-1], i)
		}
	}

	rows := make(ResultTable, 0, len(items))
	for _, item := range items {
		row := AnalysisRow{Item: item, Regions: make([]RegionStats, 0, len(Regions))}
		present := ds != nil && ds.HasColumn(item)

		for ri, region := range Regions {
			stats := RegionStats{Region: region, Exceedances: make([]LevelCount, len(levels))}
			for li, level := range levels {
				stats.Exceedances[li] = LevelCount{Level: level}
				if th, ok := standards.Threshold(region, level, item); ok {
					th := th
					stats.Exceedances[li].Threshold = &th
				}
			}

			if present {
				tallyRegion(ds, byRegion[ri], item, useSiteID, &stats)
			}
			row.Regions = append(row.Regions, stats)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// tallyRegion fills site, sample, maximum and exceedance figures of one region
func tallyRegion(ds *Dataset, idx []int, item string, useSiteID bool, stats *RegionStats) {
	stats.Samples = len(idx)
	stats.Sites = countSites(ds, idx, useSiteID)

	exceeding := make([][]int, len(stats.Exceedances))
	for _, i := range idx {
		v := ds.value(i, item)
		if v == nil {
			continue
		}
		if stats.Max == nil || *v > *stats.Max {
			m := *v
			stats.Max = &m
		}
		for li, lc := range stats.Exceedances {
			if lc.Threshold != nil && *v > *lc.Threshold {
				exceeding[li] = append(exceeding[li], i)
			}
		}
	}

	for li := range stats.Exceedances {
		stats.Exceedances[li].Samples = len(exceeding[li])
		stats.Exceedances[li].Sites = countSites(ds, exceeding[li], useSiteID)
	}
}

// countSites counts distinct identifiers. Records with a blank identifier
// share one site, so a region with samples never reports zero sites.
func countSites(ds *Dataset, idx []int, useSiteID bool) int {
	if !useSiteID {
		return len(idx)
	}
	seen := make(map[string]struct{}, len(idx))
	for _, i := range idx {
		seen[ds.Records[i].SiteID] = struct{}{}
	}
	return len(seen)
}

// MergeLevels joins tables that were aggregated separately per criteria level
// into one table keyed by item. Levels missing for an item are filled with
// zero counts. Output order follows items; items found only in parts are
// appended in order of first appearance.
func MergeLevels(items []string, levels []CriteriaLevel, parts ...ResultTable) ResultTable {
	type regionKey struct {
		item   string
		region Region
	}
	merged := make(map[regionKey]RegionStats)
	order := append([]string(nil), items...)
	known := make(map[string]struct{}, len(items))
	for _, item := range items {
		known[item] = struct{}{}
	}

	for _, part := range parts {
		for _, row := range part {
			if _, ok := known[row.Item]; !ok {
				known[row.Item] = struct{}{}
				order = append(order, row.Item)
			}
			for _, rs := range row.Regions {
				k := regionKey{row.Item, rs.Region}
				cur, ok := merged[k]
				if !ok {
					cur = RegionStats{Region: rs.Region}
				}
				if rs.Samples > cur.Samples {
					cur.Samples = rs.Samples
				}
				if rs.Sites > cur.Sites {
					cur.Sites = rs.Sites
				}
				if rs.Max != nil && (cur.Max == nil || *rs.Max > *cur.Max) {
					m := *rs.Max
					cur.Max = &m
				}
				cur.Exceedances = append(cur.Exceedances, rs.Exceedances...)
				merged[k] = cur
			}
		}
	}

	out := make(ResultTable, 0, len(order))
	for _, item := range order {
		row := AnalysisRow{Item: item, Regions: make([]RegionStats, 0, len(Regions))}
		for _, region := range Regions {
			cur, ok := merged[regionKey{item, region}]
			if !ok {
				cur = RegionStats{Region: region}
			}
			exc := make([]LevelCount, 0, len(levels))
			for _, level := range levels {
				exc = append(exc, cur.Exceedance(level))
			}
			cur.Exceedances = exc
			row.Regions = append(row.Regions, cur)
		}
		out = append(out, row)
	}
	return out
}
