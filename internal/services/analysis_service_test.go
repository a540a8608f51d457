package services

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soilhub/internal/config"
	"soilhub/internal/exceedance"
	"soilhub/internal/files"
	"soilhub/internal/shared/testutil"
)

func TestAnalysisService_AnalyzeDefaults(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.uploadSample(t)

	report, err := env.analysis.Analyze(context.Background(), id, AnalysisParams{})
	require.NoError(t, err)

	assert.Equal(t, id, report.Dataset.ID)
	assert.Equal(t, "auto", report.CountMode)
	assert.Equal(t, "시료명", report.SiteColumn)
	assert.Equal(t, []string{"Cd", "Pb", "TPH"}, report.Items, "default items follow the standards columns")
	assert.Equal(t, exceedance.AllLevels, report.Levels)
	require.Len(t, report.Overview, 3)
	require.Len(t, report.Detailed, 3)
	require.Len(t, report.Combined, 3)

	// overview Cd in 1지역: S1 sampled twice at 5 and 2
	cd := report.Overview[0].Region(exceedance.Region1)
	assert.Equal(t, 1, cd.Sites)
	assert.Equal(t, 2, cd.Samples)
	require.NotNil(t, cd.Max)
	assert.Equal(t, 5.0, *cd.Max)
	assert.Equal(t, 1, cd.Exceedance(exceedance.ConcernStandard).Samples)
	assert.Equal(t, 2, cd.Exceedance(exceedance.Concern40).Samples)
	assert.Nil(t, cd.Exceedance(exceedance.CountermeasureStandard).Threshold)

	// detailed Cd in 1지역 is a non-detect only
	assert.Nil(t, report.Detailed[0].Region(exceedance.Region1).Max)
	assert.Equal(t, 1, report.Detailed[0].Region(exceedance.Region3).Exceedance(exceedance.ConcernStandard).Sites)

	combined := report.Combined[0].Region(exceedance.Region1)
	assert.Equal(t, 2, combined.Sites)
	assert.Equal(t, 3, combined.Samples)

	// "1,000" is read as a thousand
	pb := report.Detailed[1].Region(exceedance.Region3)
	require.NotNil(t, pb.Max)
	assert.Equal(t, 1000.0, *pb.Max)

	diag := report.Diagnostics
	assert.Equal(t, 6, diag.TotalRecords)
	assert.Equal(t, 1, diag.UnknownPhase)
	assert.Zero(t, diag.UnknownRegion)
	assert.Equal(t, map[string]int{"Cd": 1}, diag.UnparseableCells)

	assert.Equal(t, int64(1), env.counter(t, "analysis_runs_total"))
	assert.Equal(t, int64(6), env.counter(t, "analysis_records_classified_total"))
	assert.Equal(t, int64(1), env.counter(t, "analysis_unparseable_cells_total"))
	assert.Subset(t, env.spanNames(), []string{"analysis.run", "analysis.classify", "analysis.aggregate"})
	assert.True(t, env.logs.ContainsMessage("Analysis completed"))
}

func TestAnalysisService_AnalyzeParams(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.uploadSample(t)

	report, err := env.analysis.Analyze(context.Background(), id, AnalysisParams{
		Items:     []string{" Pb ", "Pb", "", "Zn"},
		Levels:    []string{"concern", "concern"},
		CountMode: "samples",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Pb", "Zn"}, report.Items)
	assert.Equal(t, []exceedance.CriteriaLevel{exceedance.ConcernStandard}, report.Levels)
	assert.Equal(t, "samples", report.CountMode)
	assert.Equal(t, []string{"Zn"}, report.Diagnostics.MissingItems)

	pb := report.Combined[0].Region(exceedance.Region1)
	assert.Equal(t, 3, pb.Sites, "samples mode counts rows")
	assert.Len(t, pb.Exceedances, 1)

	zn := report.Combined[1].Region(exceedance.Region1)
	assert.Zero(t, zn.Samples)
	assert.Nil(t, zn.Max)
}

func TestAnalysisService_AnalyzeTable(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.uploadSample(t)
	ctx := context.Background()

	stored, err := env.analysis.Analyze(ctx, id, AnalysisParams{})
	require.NoError(t, err)

	table := exceedance.Table{Header: testutil.SampleHeader, Rows: testutil.SampleRows}
	local, err := env.analysis.AnalyzeTable(ctx, files.Dataset{ID: "현장A", Name: "현장A.csv"}, table, AnalysisParams{})
	require.NoError(t, err)

	assert.Equal(t, "현장A", local.Dataset.ID)
	assert.Equal(t, stored.Overview, local.Overview)
	assert.Equal(t, stored.Detailed, local.Detailed)
	assert.Equal(t, stored.Combined, local.Combined)
	assert.Equal(t, int64(2), env.counter(t, "analysis_runs_total"))
}

func TestAnalysisService_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name          string
		withStandards bool
		upload        bool
		id            string
		params        AnalysisParams
		wantErr       error
	}{
		{name: "unknown dataset", withStandards: true, id: "19990101_000000", wantErr: ErrDatasetNotFound},
		{name: "no standards file", upload: true, wantErr: ErrStandardsNotLoaded},
		{name: "bad level", withStandards: true, upload: true, params: AnalysisParams{Levels: []string{"severe"}}, wantErr: ErrInvalidInput},
		{name: "bad count mode", withStandards: true, upload: true, params: AnalysisParams{CountMode: "sites"}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.withStandards)
			id := tt.id
			if tt.upload {
				id = env.uploadSample(t)
			}

			_, err := env.analysis.Analyze(context.Background(), id, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(1), env.counter(t, "analysis_errors_total"))
		})
	}
}

func TestAnalysisService_RegionColumnMissing(t *testing.T) {
	env := newTestEnv(t, true)

	content := testutil.CSVBytes(t, []string{"조사구분", "Cd"}, [][]string{{"개황", "1"}})
	ds, err := env.datasets.Upload(context.Background(), "no_region.csv", bytes.NewReader(content))
	require.NoError(t, err)

	_, err = env.analysis.Analyze(context.Background(), ds.ID, AnalysisParams{})
	require.Error(t, err)
	assert.True(t, exceedance.IsConfigError(err))
	assert.ErrorIs(t, err, exceedance.ErrRegionColumnNotFound)
}

func TestAnalysisService_Diagnostics(t *testing.T) {
	for _, withStandards := range []bool{true, false} {
		env := newTestEnv(t, withStandards)
		id := env.uploadSample(t)

		report, err := env.analysis.Diagnostics(context.Background(), id)
		require.NoError(t, err)

		assert.Equal(t, "조사구분", report.PhaseColumn)
		assert.Equal(t, "지목", report.RegionColumn)
		assert.Equal(t, "시료명", report.SiteColumn)
		assert.Equal(t, map[string]int{"overview": 3, "detailed": 2, "unknown": 1}, report.Phases)
		assert.Equal(t, map[string]int{"region1": 4, "region2": 1, "region3": 1}, report.Regions)
		assert.Equal(t, 6, report.Diagnostics.TotalRecords)
		if withStandards {
			assert.Equal(t, []string{"Cd", "Pb", "TPH"}, report.Items)
			assert.Equal(t, 1, report.Diagnostics.UnparseableCells["Cd"])
		} else {
			assert.Equal(t, exceedance.DefaultTaxonomy().Items(), report.Items)
		}
	}
}

func TestAnalysisService_Items(t *testing.T) {
	t.Run("with standards", func(t *testing.T) {
		env := newTestEnv(t, true)
		catalog, err := env.analysis.Items(context.Background())
		require.NoError(t, err)

		assert.True(t, catalog.StandardsLoaded)
		assert.Equal(t, []string{"Cd", "Pb", "TPH"}, catalog.StandardsItems)
		assert.Equal(t, []string{"Cd", "Pb", "TPH"}, catalog.DefaultItems)
		assert.Len(t, catalog.Groups, 4)
	})

	t.Run("without standards", func(t *testing.T) {
		env := newTestEnv(t, false)
		catalog, err := env.analysis.Items(context.Background())
		require.NoError(t, err)

		assert.False(t, catalog.StandardsLoaded)
		assert.Empty(t, catalog.StandardsItems)
		assert.Equal(t, exceedance.DefaultTaxonomy().Items(), catalog.DefaultItems)
	})
}

func TestAnalysisService_Export(t *testing.T) {
	env := newTestEnv(t, true)
	id := env.uploadSample(t)

	tests := []struct {
		format      string
		contentType string
	}{
		{format: "csv", contentType: "text/csv; charset=utf-8"},
		{format: "xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := env.analysis.Export(context.Background(), id, AnalysisParams{Items: []string{"Cd"}}, tt.format)
			require.NoError(t, err)
			assert.Equal(t, id+"_analysis."+tt.format, out.Filename)
			assert.Equal(t, tt.contentType, out.ContentType)
			assert.NotEmpty(t, out.Data)
		})
	}

	out, err := env.analysis.Export(context.Background(), id, AnalysisParams{Items: []string{"Cd"}}, "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(out.Data), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "개황(A),Cd,1,2,5,"))
	assert.True(t, strings.HasPrefix(lines[2], "정밀(B),Cd,"))

	assert.Equal(t, int64(3), env.counter(t, "analysis_exports_total"))

	_, err = env.analysis.Export(context.Background(), id, AnalysisParams{}, "pdf")
	assert.ErrorIs(t, err, ErrInvalidExport)
}

func TestNewAnalysisService_InvalidConfig(t *testing.T) {
	cfg := config.Default().Analysis
	cfg.Levels = []string{"nope"}
	_, err := NewAnalysisService(nil, nil, exceedance.DefaultTaxonomy(), cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg = config.Default().Analysis
	cfg.CountMode = "sites"
	_, err = NewAnalysisService(nil, nil, exceedance.DefaultTaxonomy(), cfg, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStandardsStore_Reload(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	first, err := env.standards.Get(ctx)
	require.NoError(t, err)
	again, err := env.standards.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again, "unchanged file is served from cache")
	assert.Equal(t, int64(1), env.counter(t, "standards_reloads_total"))

	updated := testutil.SampleStandardsCSV + "1지역,대책기준,12,600,2000\n"
	require.NoError(t, os.WriteFile(env.standards.Path(), []byte(updated), 0644))

	reloaded, err := env.standards.Get(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)
	assert.Equal(t, int64(2), env.counter(t, "standards_reloads_total"))
	// without a countermeasure label 대책기준 is read as a concern standard
	assert.False(t, reloaded.HasLevel(exceedance.CountermeasureStandard))
}

func TestStandardsStore_Malformed(t *testing.T) {
	env := newTestEnv(t, false)
	require.NoError(t, os.WriteFile(env.standards.Path(), []byte("지역,기준\n1지역,우려기준\n"), 0644))

	_, err := env.standards.Get(context.Background())
	assert.ErrorIs(t, err, exceedance.ErrStandardsMalformed)
	assert.True(t, env.logs.ContainsMessage("Standards file rejected"))
}

func TestLoadTaxonomy(t *testing.T) {
	tax, err := LoadTaxonomy("", []string{"대책", ""})
	require.NoError(t, err)

	level, ok := tax.ClassifyLevel("대책기준")
	require.True(t, ok)
	assert.Equal(t, exceedance.CountermeasureStandard, level)

	level, ok = tax.ClassifyLevel("우려기준40%")
	require.True(t, ok)
	assert.Equal(t, exceedance.Concern40, level)

	_, err = LoadTaxonomy("/nonexistent/taxonomy.yaml", nil)
	assert.Error(t, err)
}
