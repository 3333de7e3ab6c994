package provider_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/internal/testutil"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

func TestOpen_Backends(t *testing.T) {
	csvDir := t.TempDir()
	testutil.WriteCSV(t, csvDir)
	dbPath := filepath.Join(t.TempDir(), "records.db")
	testutil.WriteSQLite(t, dbPath)

	for _, tc := range []struct{ kind, path string }{
		{provider.KindCSV, csvDir},
		{provider.KindSQLite, dbPath},
	} {
		t.Run(tc.kind, func(t *testing.T) {
			// GIVEN params with an NCVS multiplier on Black
			params := testutil.Params()
			params.RateMultNCVS = map[string]float64{"Black": 2}

			// WHEN the backend is opened
			set, err := provider.Open(tc.kind, tc.path, params)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, set.Close()) })
			require.NoError(t, set.Validate())

			// THEN NCVS rates are scaled and NSDUH rates are not
			ncvs, err := set.Rates[sim.SourceNCVS].Rates(2000)
			require.NoError(t, err)
			require.NotEmpty(t, ncvs)
			assert.Equal(t, "Black", ncvs[0].Race)
			assert.Equal(t, 1.0, ncvs[0].ArrestRateSmooth)

			nsduh, err := set.Rates[sim.SourceNSDUH].Rates(2000)
			require.NoError(t, err)
			require.NotEmpty(t, nsduh)
			assert.Equal(t, 0.1, nsduh[0].ArrestRateSmooth)
		})
	}
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := provider.Open("parquet", t.TempDir(), testutil.Params())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv, sqlite")
}

func TestIsValidKind(t *testing.T) {
	assert.True(t, provider.IsValidKind("csv"))
	assert.True(t, provider.IsValidKind("sqlite"))
	assert.False(t, provider.IsValidKind(""))
}
