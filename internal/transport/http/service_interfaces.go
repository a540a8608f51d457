package http

import (
	"context"
	"io"

	"soilhub/internal/files"
	"soilhub/internal/services"
)

// DatasetServiceInterface defines the dataset operations the handlers use
type DatasetServiceInterface interface {
	Upload(ctx context.Context, name string, src io.Reader) (files.Dataset, error)
	List(ctx context.Context) []files.Dataset
	Get(ctx context.Context, id string) (files.Dataset, error)
	Delete(ctx context.Context, id string) error
	Preview(ctx context.Context, id string, limit int) (*services.DatasetPreview, error)
	MaxUploadBytes() int64
}

// AnalysisServiceInterface defines the analysis operations the handlers use
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, id string, p services.AnalysisParams) (*services.AnalysisReport, error)
	Diagnostics(ctx context.Context, id string) (*services.DiagnosticsReport, error)
	Items(ctx context.Context) (*services.ItemCatalog, error)
	Export(ctx context.Context, id string, p services.AnalysisParams, format string) (*services.ExportResult, error)
}

// HealthServiceInterface defines the health checks exposed over HTTP
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

var (
	_ DatasetServiceInterface  = (*services.DatasetService)(nil)
	_ AnalysisServiceInterface = (*services.AnalysisService)(nil)
	_ HealthServiceInterface   = (*services.HealthService)(nil)
)
