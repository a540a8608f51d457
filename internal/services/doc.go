// Package services implements the business logic between the HTTP handlers
// and the dataset store.
//
// # Services
//
//   - DatasetService stores uploads through files.Registry, rejects files that
//     do not read as a table and serves raw previews with column profiles.
//   - StandardsStore reads the standards file on first use and again whenever
//     its size or modification time changes.
//   - AnalysisService classifies a dataset, aggregates the overview, detailed
//     and combined tables concurrently and renders exports.
//   - HealthService reports liveness and readiness of the above.
//
// # Errors
//
// Services return the sentinels in errors.go wrapped around the underlying
// cause, so callers test with errors.Is:
//
//	report, err := analysis.Analyze(ctx, id, services.AnalysisParams{})
//	switch {
//	case errors.Is(err, services.ErrDatasetNotFound):
//		// 404
//	case exceedance.IsConfigError(err):
//		// the dataset or standards file cannot be analysed as is
//	}
//
// # Observability
//
// Analyses run inside an "analysis.run" span with child spans per step and
// are counted through infrastructure.AnalysisMetrics. All services log with a
// component attribute.
package services
