// Package api contains the request and response contracts of the soilhub
// HTTP API. Version v1 is the current stable API version.
package api

// Analysis API Requests

// AnalysisRequest selects the items, criteria levels and counting mode of
// an exceedance analysis. Empty fields use the server defaults.
type AnalysisRequest struct {
	Items     []string `json:"items,omitempty" validate:"omitempty,max=200,dive,required,max=128"`
	Levels    []string `json:"levels,omitempty" validate:"omitempty,max=3,dive,criteria_level"`
	CountMode string   `json:"count_mode,omitempty" validate:"omitempty,count_mode"`
}

// ExportRequest is an AnalysisRequest rendered into a downloadable file
type ExportRequest struct {
	AnalysisRequest
	Format string `json:"format,omitempty" query:"format" validate:"omitempty,oneof=csv xlsx CSV XLSX"`
}
