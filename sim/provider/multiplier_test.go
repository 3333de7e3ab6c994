package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/internal/testutil"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

func TestWithMultipliers_ScalesMatchingRows(t *testing.T) {
	// GIVEN NCVS rates and multipliers on race and gender
	base := provider.NewRateTable(sim.SourceNCVS, testutil.RateRows()[sim.SourceNCVS])
	rp := provider.WithMultipliers(base, map[string]float64{"Black": 2, "Male": 1.5, "Asian": 10})

	// WHEN rates are read
	rows, err := rp.Rates(2000)
	require.NoError(t, err)

	// THEN the Black Male row is scaled by both factors, the other row is untouched
	require.Len(t, rows, 2)
	testutil.AssertFloat64Equal(t, "arrest_rate", 1.5, rows[0].ArrestRate, 1e-12)
	testutil.AssertFloat64Equal(t, "arrest_rate_smooth", 1.5, rows[0].ArrestRateSmooth, 1e-12)
	assert.Equal(t, 1.0, rows[0].Lambda, "lambda is never scaled")
	assert.Equal(t, 0.25, rows[1].ArrestRate)
}

func TestWithMultipliers_MatchesAgeCategory(t *testing.T) {
	base := provider.NewRateTable(sim.SourceNSDUH, testutil.RateRows()[sim.SourceNSDUH])
	rp := provider.WithMultipliers(base, map[string]float64{string(sim.AgeOver29): 0.5})

	rows, err := rp.Rates(2000)
	require.NoError(t, err)
	want, err := base.Rates(2000)
	require.NoError(t, err)
	require.Len(t, rows, len(want))
	for i, r := range rows {
		testutil.AssertFloat64Equal(t, r.Key().String(), want[i].ArrestRate/2, r.ArrestRate, 1e-12)
	}
}

func TestWithMultipliers_EmptyReturnsProvider(t *testing.T) {
	base := provider.NewRateTable(sim.SourceNCVS, nil)
	assert.Same(t, base, provider.WithMultipliers(base, nil))
}
