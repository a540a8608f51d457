// Package exceedance implements the standards-based exceedance analysis of
// soil contamination survey records.
//
// A survey dataset is a rectangular table with one row per soil sample. Each
// sample belongs to a survey phase (개황 overview or 정밀 detailed), a land-use
// region (1지역, 2지역, 3지역) and carries measured concentrations for a set of
// items such as Cd(mg/kg) or TPH. A standards table lists, per region and
// criteria level, the threshold above which a measurement counts as an
// exceedance.
//
// # Pipeline
//
//  1. Classify locates the phase, region and site columns and tags every record
//  2. Normalize coerces the measurement cells of the requested items to floats
//  3. LoadStandards builds the (region, level, item) threshold lookup
//  4. Aggregate tallies sites, samples, maxima and exceedances per region
//  5. Assemble produces aligned overview, detailed and combined tables
//
// # Files
//
//   - types.go: phases, regions, criteria levels and result rows
//   - taxonomy.go: injectable vocabulary and item groups
//   - normalize.go: measurement cell cleanup
//   - classify.go: phase and region tagging
//   - standards.go: threshold table
//   - aggregate.go: per-region tallies and level merging
//   - assemble.go: phase variants
//   - diagnostics.go: data-quality counters
//
// # Usage Example
//
//	tax := exceedance.DefaultTaxonomy()
//	ds, err := exceedance.Classify(records, tax)
//	if err != nil {
//	    return err // *ConfigError when no region column exists
//	}
//	std, err := exceedance.LoadStandards(standardsTable, tax)
//	if err != nil {
//	    return err
//	}
//	report, err := exceedance.Assemble(ds, []string{"Cd(mg/kg)", "TPH"}, std, exceedance.Options{})
//
// The package holds no mutable package state. Datasets and standards tables
// are read-only once built and may be shared between goroutines.
package exceedance
