package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"soilhub/internal/config"
	"soilhub/internal/exceedance"
	"soilhub/internal/files"
	"soilhub/internal/infrastructure"
	"soilhub/internal/shared/testutil"
)

// testEnv wires the services over a temporary directory with recording
// tracer and meter providers
type testEnv struct {
	paths     *config.Paths
	registry  *files.Registry
	datasets  *DatasetService
	standards *StandardsStore
	analysis  *AnalysisService
	spans     *tracetest.SpanRecorder
	reader    *sdkmetric.ManualReader
	logs      *testutil.BufferedSlogHandler
}

func newTestEnv(t *testing.T, withStandards bool) *testEnv {
	t.Helper()

	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	if withStandards {
		testutil.WriteFile(t, paths.BaseDir, "standards.csv", []byte(testutil.SampleStandardsCSV))
	}

	logger, logs := testutil.NewTestLogger(t)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	registry, err := files.NewRegistry(files.NewManager(paths, logger), paths.DatasetsFile, logger)
	require.NoError(t, err)

	cfg := config.Default().Analysis
	datasets := NewDatasetService(registry, cfg, metrics, logger)
	standards := NewStandardsStore(paths.StandardsFile, exceedance.DefaultTaxonomy(), metrics, logger)
	analysis, err := NewAnalysisService(datasets, standards, exceedance.DefaultTaxonomy(), cfg, tp.Tracer("test"), metrics, logger)
	require.NoError(t, err)
	analysis.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }

	return &testEnv{
		paths:     paths,
		registry:  registry,
		datasets:  datasets,
		standards: standards,
		analysis:  analysis,
		spans:     spans,
		reader:    reader,
		logs:      logs,
	}
}

// uploadSample stores the shared survey fixture and returns its id
func (e *testEnv) uploadSample(t *testing.T) string {
	t.Helper()
	content := testutil.CSVBytes(t, testutil.SampleHeader, testutil.SampleRows)
	ds, err := e.datasets.Upload(context.Background(), "현장A.csv", strings.NewReader(string(content)))
	require.NoError(t, err)
	return ds.ID
}

// counter sums every data point of the named Int64 counter
func (e *testEnv) counter(t *testing.T, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func (e *testEnv) spanNames() []string {
	var names []string
	for _, s := range e.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}
