package exceedance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardsFixture() Table {
	return Table{
		Header: []string{"지역", "기준", " Cd(mg/kg)\n", "Pb(mg/kg)", "TPH"},
		Rows: [][]string{
			{"1지역", "우려기준", "4", "200", "500"},
			{"1지역", "우려기준40%", "1.6", "80", "200"},
			{"2지역", "우려기준", "10", "400", "-"},
			{"3지역", "대책기준", "180", "1,200", ""},
			{"", "우려기준", "1", "1", "1"},
			{"2지역", "", "1", "1", "1"},
			{"공장", "우려기준", "1", "1", "1"},
		},
	}
}

// TestLoadStandards tests threshold extraction with the default level rules
func TestLoadStandards(t *testing.T) {
	st, err := LoadStandards(standardsFixture(), DefaultTaxonomy())
	require.NoError(t, err)

	assert.Equal(t, []string{"Cd(mg/kg)", "Pb(mg/kg)", "TPH"}, st.Items())
	assert.Equal(t, 3, st.SkippedRows)

	th, ok := st.Threshold(Region1, ConcernStandard, "Cd(mg/kg)")
	require.True(t, ok)
	assert.Equal(t, 4.0, th)

	th, ok = st.Threshold(Region1, Concern40, "Pb(mg/kg)")
	require.True(t, ok)
	assert.Equal(t, 80.0, th)

	_, ok = st.Threshold(Region2, ConcernStandard, "TPH")
	assert.False(t, ok, "non-numeric cell must be omitted")

	// without an explicit rule 대책기준 falls into the catch-all
	th, ok = st.Threshold(Region3, ConcernStandard, "Pb(mg/kg)")
	require.True(t, ok)
	assert.Equal(t, 1200.0, th)
	assert.False(t, st.HasLevel(CountermeasureStandard))

	assert.Equal(t, []string{"Cd(mg/kg)", "Pb(mg/kg)", "TPH"}, st.ItemsFor(Region1, ConcernStandard))
	assert.Equal(t, []string{"Cd(mg/kg)", "Pb(mg/kg)"}, st.ItemsFor(Region2, ConcernStandard))
}

func TestLoadStandardsCountermeasureRule(t *testing.T) {
	tax := DefaultTaxonomy().WithLevelLabel("대책", CountermeasureStandard)

	st, err := LoadStandards(standardsFixture(), tax)
	require.NoError(t, err)

	th, ok := st.Threshold(Region3, CountermeasureStandard, "Cd(mg/kg)")
	require.True(t, ok)
	assert.Equal(t, 180.0, th)
	assert.True(t, st.HasLevel(CountermeasureStandard))

	_, ok = st.Threshold(Region3, ConcernStandard, "Cd(mg/kg)")
	assert.False(t, ok)
}

func TestLoadStandardsIdempotent(t *testing.T) {
	a, err := LoadStandards(standardsFixture(), DefaultTaxonomy())
	require.NoError(t, err)
	b, err := LoadStandards(standardsFixture(), DefaultTaxonomy())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 10, a.Len())
}

func TestLoadStandardsMalformed(t *testing.T) {
	_, err := LoadStandards(Table{Header: []string{"지역", "기준"}}, DefaultTaxonomy())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStandardsMalformed)
	assert.True(t, IsConfigError(err))
}
