package trace

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExport_WritesHeaderAndRows(t *testing.T) {
	// GIVEN a header and two records, one with a missing arrest rate
	dir := t.TempDir()
	headerPath := filepath.Join(dir, "trace.yaml")
	dataPath := filepath.Join(dir, "trace.csv")
	lam := 1.5
	header := &TraceHeader{Version: 1, CacheKey: "2000-2005_3/lam1.50_om1.00_lr_pr-0.csv",
		StartYear: 2000, EndYear: 2005, Window: 3, Lambda: &lam, Omega: 1, Smoothing: "lr_pr"}
	records := []GroupRecord{
		{WindowEnd: 2003, Source: "ncvs", Race: "Black", AgeCat: "18-29", Gender: "Male", Offense: "robbery",
			Observed: 10, PopSize: 2, ArrestRate: 0.5, Rate: 1, TotalCrimes: 20, Unobserved: 10,
			UnobservedPerPerson: 5, Divisor: 1, Samples: 10, Assigned: 10},
		{WindowEnd: 2003, Source: "nsduh", Offense: "dui", ArrestRate: math.NaN(), Rate: math.NaN(), Fallback: true},
	}

	// WHEN exported
	require.NoError(t, Export(header, records, headerPath, dataPath))

	// THEN the header round-trips through YAML
	raw, err := os.ReadFile(headerPath)
	require.NoError(t, err)
	var got TraceHeader
	require.NoError(t, yaml.Unmarshal(raw, &got))
	assert.Equal(t, header.CacheKey, got.CacheKey)
	require.NotNil(t, got.Lambda)
	assert.Equal(t, 1.5, *got.Lambda)

	// AND the CSV has a header row plus one row per record
	f, err := os.Open(dataPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, groupColumns, rows[0])
	assert.Equal(t, "0.5", rows[1][8])
	assert.Equal(t, "20", rows[1][10])
	assert.Equal(t, "", rows[2][8], "NaN rate must be written as an empty cell")
	assert.Equal(t, "true", rows[2][16])
}
