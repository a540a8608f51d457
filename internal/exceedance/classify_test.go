package exceedance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClassifyRegion tests the first-match rule order
func TestClassifyRegion(t *testing.T) {
	tax := DefaultTaxonomy()
	tests := []struct {
		label    string
		expected Region
	}{
		{"1지역", Region1},
		{"2지역", Region2},
		{"3지역", Region3},
		{"혼합1,2", Region1},
		{"2,3지역", Region2},
		{"21", Region1},
		{"공장용지", RegionUnknown},
		{"", RegionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, tax.ClassifyRegion(tt.label))
		})
	}
}

func TestClassifyPhase(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.Equal(t, PhaseOverview, tax.ClassifyPhase("개황조사"))
	assert.Equal(t, PhaseDetailed, tax.ClassifyPhase("정밀조사"))
	assert.Equal(t, PhaseDetailed, tax.ClassifyPhase("상세조사"))
	assert.Equal(t, PhaseUnknown, tax.ClassifyPhase("사후조사"))
	assert.Equal(t, PhaseUnknown, tax.ClassifyPhase(""))
}

func TestClassify(t *testing.T) {
	tax := DefaultTaxonomy()

	t.Run("tags records and records diagnostics", func(t *testing.T) {
		ds, err := Classify(Table{
			Header: []string{" 조사구분 ", "시료명", "지목\n(지역)", "Cd(mg/kg)"},
			Rows: [][]string{
				{"개황조사", "S-1", "1지역", "0.4"},
				{"정밀조사", "S-2", "2지역", "1.1"},
				{"기타", "S-3", "공장용지", "0.2"},
				{"개황조사", "S-4"},
			},
		}, tax)
		require.NoError(t, err)

		assert.Equal(t, "조사구분", ds.PhaseColumn)
		assert.Equal(t, "지목(지역)", ds.RegionColumn)
		assert.Equal(t, "시료명", ds.SiteColumn)
		assert.True(t, ds.HasSiteID())
		assert.True(t, ds.HasColumn("Cd(mg/kg)"))

		require.Len(t, ds.Records, 4)
		assert.Equal(t, PhaseOverview, ds.Records[0].Phase)
		assert.Equal(t, Region1, ds.Records[0].Region)
		assert.Equal(t, "S-1", ds.Records[0].SiteID)
		assert.Equal(t, PhaseDetailed, ds.Records[1].Phase)
		assert.Equal(t, Region2, ds.Records[1].Region)
		assert.Equal(t, PhaseUnknown, ds.Records[2].Phase)
		assert.Equal(t, RegionUnknown, ds.Records[2].Region)
		assert.Equal(t, "", ds.Records[3].Cells["Cd(mg/kg)"])

		assert.Equal(t, 4, ds.Diagnostics.TotalRecords)
		assert.Equal(t, 1, ds.Diagnostics.UnknownPhase)
		assert.Equal(t, 2, ds.Diagnostics.UnknownRegion)
		assert.Equal(t, []string{"", "공장용지"}, ds.Diagnostics.UnmatchedRegionLabels)
		assert.False(t, ds.Diagnostics.DefaultedPhase)
	})

	t.Run("missing phase column defaults to overview", func(t *testing.T) {
		ds, err := Classify(Table{
			Header: []string{"지역", "Pb(mg/kg)"},
			Rows:   [][]string{{"3지역", "40"}, {"1지역", "20"}},
		}, tax)
		require.NoError(t, err)

		assert.True(t, ds.Diagnostics.DefaultedPhase)
		assert.False(t, ds.HasSiteID())
		for _, rec := range ds.Records {
			assert.Equal(t, PhaseOverview, rec.Phase)
		}
	})

	t.Run("site column falls back to 지점명", func(t *testing.T) {
		ds, err := Classify(Table{Header: []string{"지점명", "지목"}}, tax)
		require.NoError(t, err)
		assert.Equal(t, "지점명", ds.SiteColumn)
	})

	t.Run("missing region column is a config error", func(t *testing.T) {
		_, err := Classify(Table{
			Header: []string{"조사구분", "Cd(mg/kg)"},
			Rows:   [][]string{{"개황조사", "1"}},
		}, tax)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegionColumnNotFound)
		assert.True(t, IsConfigError(err))

		var ce *ConfigError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, []string{"조사구분", "Cd(mg/kg)"}, ce.Columns)
	})
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t,
		[]string{"Cd(mg/kg)", "조사구분", ""},
		NormalizeHeader([]string{"Cd\r\n(mg/kg)", "  조사구분\t", " "}),
	)
}
