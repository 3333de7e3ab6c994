package provider_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/internal/testutil"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

func TestSQLiteStore_MatchesInMemoryFixture(t *testing.T) {
	// GIVEN the fixture imported into a SQLite database
	path := filepath.Join(t.TempDir(), "records.db")
	testutil.WriteSQLite(t, path)

	store, err := provider.OpenSQLite(path, testutil.Window, sim.DefaultSmoothing)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	want := testutil.Providers(t)

	// WHEN cohorts and rates are queried
	// THEN they match the in-memory providers
	for _, year := range []int{2000, 2001} {
		gotCohort, err := store.Cohort(year)
		require.NoError(t, err)
		wantCohort, err := want.Cohort.Cohort(year)
		require.NoError(t, err)
		if diff := cmp.Diff(wantCohort, gotCohort); diff != "" {
			t.Errorf("cohort %d mismatch (-want +got):\n%s", year, diff)
		}
		for _, src := range sim.Sources {
			gotRates, err := store.RateProvider(src).Rates(year)
			require.NoError(t, err)
			wantRates, err := want.Rates[src].Rates(year)
			require.NoError(t, err)
			if diff := cmp.Diff(wantRates, gotRates); diff != "" {
				t.Errorf("%s rates %d mismatch (-want +got):\n%s", src, year, diff)
			}
		}
	}
}

func TestSQLiteStore_NullRateIsNaN(t *testing.T) {
	store, err := provider.OpenSQLite(filepath.Join(t.TempDir(), "nan.db"), 3, sim.DefaultSmoothing)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	row := sim.RateRow{Race: "Black", AgeCat: sim.AgeOver29, Gender: "Male", Offense: sim.Robbery,
		ArrestRate: 0.3, ArrestRateSmooth: math.NaN(), Lambda: 1, LambdaSmooth: math.NaN()}
	require.NoError(t, store.Import(context.Background(), nil, nil,
		map[sim.Source][]provider.YearRate{sim.SourceNCVS: {{Year: 2000, Row: row}}}))

	rows, err := store.RateProvider(sim.SourceNCVS).Rates(2000)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.3, rows[0].ArrestRate)
	assert.True(t, math.IsNaN(rows[0].ArrestRateSmooth))
	assert.True(t, math.IsNaN(rows[0].LambdaSmooth))
}

func TestSQLiteStore_SmoothingSelectsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	testutil.WriteSQLite(t, path)

	store, err := provider.OpenSQLite(path, testutil.Window, "none")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rows, err := store.RateProvider(sim.SourceNCVS).Rates(2000)
	require.NoError(t, err)
	assert.Empty(t, rows, "fixture only has %s rows", sim.DefaultSmoothing)
}
