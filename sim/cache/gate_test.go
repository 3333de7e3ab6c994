package cache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/cache"
	"github.com/cj-pipeline/darkfigure/sim/internal/testutil"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

// countingCompute runs the rolling driver over the in-memory fixture and
// counts invocations.
func countingCompute(t *testing.T, calls *atomic.Int32) cache.ComputeFunc {
	providers := testutil.Providers(t)
	return func(ctx context.Context, p sim.Params) ([]sim.Person, error) {
		calls.Add(1)
		r, err := sim.RunRolling(ctx, p, providers, sim.RollingOptions{})
		if err != nil {
			return nil, err
		}
		return r.People, nil
	}
}

// wantFixtureTable is the rolling output of the fixture. Every group with a
// rate has a single member, so the table does not depend on the seed:
// robbery 2/0.5=4 then 1/0.5=2 with round(1/4)=0 drawn; dui 1/0.1=10 then
// round(9/4)=2 drawn; property 1/0.25=4 then round(3/4)=1; drugs_use 1/0.2=5
// then round(4/4)=1; p3 is underage by 2004.
func wantFixtureTable() []sim.Person {
	people := testutil.People()
	return []sim.Person{
		{UID: "p1", Race: "Black", Gender: "Male", DOB: people[0].DOB, AgeCat: sim.AgeOver29,
			Counts: fullCounts(map[sim.Offense]int{sim.Robbery: 5, sim.DUI: 13, sim.AggravatedAssault: 1})},
		{UID: "p2", Race: "White", Gender: "Female", DOB: people[1].DOB, AgeCat: sim.AgeOver29,
			Counts: fullCounts(map[sim.Offense]int{sim.Property: 6, sim.DrugsUse: 7})},
	}
}

func TestGate_ComputesThenServesFromMemoryAndDisk(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	compute := countingCompute(t, &calls)
	params := testutil.Params()

	// GIVEN an empty cache
	gate, err := cache.NewGate(dir, cache.DefaultLRUSize, compute)
	require.NoError(t, err)

	// WHEN the tuple is requested the first time
	first, err := gate.Get(context.Background(), params)
	require.NoError(t, err)

	// THEN it is computed and persisted at the parameter-derived path
	assert.Equal(t, cache.OriginComputed, first.Origin)
	assert.Equal(t, filepath.Join(dir, "2000-2004_3", "nolam_om1.00_lr_pr-7.csv"), first.Path)
	assert.FileExists(t, first.Path)
	if diff := cmp.Diff(wantFixtureTable(), first.People); diff != "" {
		t.Errorf("computed table mismatch (-want +got):\n%s", diff)
	}

	// WHEN requested again on the same gate THEN it is served from memory
	second, err := gate.Get(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, cache.OriginMemory, second.Origin)

	// WHEN requested through a fresh gate THEN it is loaded from disk verbatim
	fresh, err := cache.NewGate(dir, 0, compute)
	require.NoError(t, err)
	third, err := fresh.Get(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, cache.OriginDisk, third.Origin)
	if diff := cmp.Diff(first.People, third.People); diff != "" {
		t.Errorf("disk table differs from computed (-want +got):\n%s", diff)
	}

	assert.Equal(t, int32(1), calls.Load(), "compute runs once per tuple")
	assert.Equal(t, cache.Stats{MemoryHits: 1, Computed: 1}, gate.Stats())
}

func TestGate_DiskHitIsReturnedVerbatim(t *testing.T) {
	// GIVEN a file already at the cache path with arbitrary content
	dir := t.TempDir()
	params := testutil.Params()
	planted := []sim.Person{{UID: "zz", Race: "Asian", Gender: "Female", DOB: testutil.People()[0].DOB,
		AgeCat: sim.Age18To29, Counts: fullCounts(map[sim.Offense]int{sim.SexOffense: 99})}}
	gate, err := cache.NewGate(dir, 0, func(context.Context, sim.Params) ([]sim.Person, error) {
		t.Fatal("compute must not run on a disk hit")
		return nil, nil
	})
	require.NoError(t, err)
	require.NoError(t, cache.Store(gate.Path(params), planted))

	// WHEN requested THEN the planted table comes back without recomputation
	got, err := gate.Get(context.Background(), params)
	require.NoError(t, err)
	if diff := cmp.Diff(planted, got.People); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGate_FailedComputeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("window failed")
	gate, err := cache.NewGate(dir, cache.DefaultLRUSize, func(context.Context, sim.Params) ([]sim.Person, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = gate.Get(context.Background(), testutil.Params())
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGate_InvalidParamsRejectedBeforeCompute(t *testing.T) {
	var calls atomic.Int32
	gate, err := cache.NewGate(t.TempDir(), 0, countingCompute(t, &calls))
	require.NoError(t, err)

	params := testutil.Params()
	params.Window = 10
	_, err = gate.Get(context.Background(), params)
	assert.ErrorIs(t, err, sim.ErrInvalidParams)
	assert.Zero(t, calls.Load())
}

func TestGate_ResultsAreIndependentCopies(t *testing.T) {
	var calls atomic.Int32
	gate, err := cache.NewGate(t.TempDir(), cache.DefaultLRUSize, countingCompute(t, &calls))
	require.NoError(t, err)

	first, err := gate.Get(context.Background(), testutil.Params())
	require.NoError(t, err)
	first.People[0].Counts[sim.Robbery] = 1000

	second, err := gate.Get(context.Background(), testutil.Params())
	require.NoError(t, err)
	assert.Equal(t, 5, second.People[0].Count(sim.Robbery))
}

func TestGate_ConcurrentGetsComputeOnce(t *testing.T) {
	var calls atomic.Int32
	gate, err := cache.NewGate(t.TempDir(), cache.DefaultLRUSize, countingCompute(t, &calls))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = gate.Get(context.Background(), testutil.Params())
		}()
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")
	require.NoError(t, cache.Store(path, wantFixtureTable()))
	require.NoError(t, cache.Store(path, wantFixtureTable()), "overwriting an existing entry")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestGate_BackendsAgree(t *testing.T) {
	// GIVEN the fixture as CSV files and as a SQLite database
	csvDir := t.TempDir()
	testutil.WriteCSV(t, csvDir)
	dbPath := filepath.Join(t.TempDir(), "records.db")
	testutil.WriteSQLite(t, dbPath)

	for _, tc := range []struct{ kind, path string }{
		{provider.KindCSV, csvDir},
		{provider.KindSQLite, dbPath},
	} {
		t.Run(tc.kind, func(t *testing.T) {
			gate, err := cache.NewGate(t.TempDir(), 0, func(ctx context.Context, p sim.Params) ([]sim.Person, error) {
				set, err := provider.Open(tc.kind, tc.path, p)
				if err != nil {
					return nil, err
				}
				defer func() { _ = set.Close() }()
				r, err := sim.RunRolling(ctx, p, set.Providers, sim.RollingOptions{Workers: 2})
				if err != nil {
					return nil, err
				}
				return r.People, nil
			})
			require.NoError(t, err)

			// WHEN the fixture tuple is computed THEN every backend yields the same table
			got, err := gate.Get(context.Background(), testutil.Params())
			require.NoError(t, err)
			if diff := cmp.Diff(wantFixtureTable(), got.People); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
