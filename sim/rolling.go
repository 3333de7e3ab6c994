package sim

import (
	"context"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cj-pipeline/darkfigure/sim/trace"
)

// RollingOptions tunes how a rolling run executes. The zero value runs every
// window sequentially without tracing.
type RollingOptions struct {
	// Workers bounds how many windows are sampled concurrently (<= 1: sequential).
	Workers int
	// Trace, when non-nil and enabled, receives every window's group records
	// in window order.
	Trace *trace.Trace
}

// RollingResult is the accumulated output of a rolling run.
type RollingResult struct {
	People []Person
	Ages   AgeFilterStats
}

// SampleDivisor returns n_samples_div for the idx-th window of a run: the
// first window samples at full scale, later ones at window+1 because each
// person-year is covered by window+1 overlapping windows.
func SampleDivisor(idx, window int) float64 {
	if idx == 0 {
		return 1
	}
	return float64(window + 1)
}

// RunRolling samples every window end-year from StartYear+Window to EndYear,
// sums the window outputs per person and re-derives the age category as of
// EndYear. Any window failure aborts the whole run.
func RunRolling(ctx context.Context, params Params, providers Providers, opts RollingOptions) (*RollingResult, error) {
	ws, err := NewWindowSampler(params, providers)
	if err != nil {
		return nil, err
	}

	ends := params.WindowEnds()
	// Streams are derived up front on this goroutine; each worker owns one.
	prng := NewPartitionedRNG(NewSimulationKey(params.Seed))
	streams := make([]*rand.Rand, len(ends))
	for i, end := range ends {
		streams[i] = prng.ForSubsystem(SubsystemWindow(end))
	}

	results := make([]*WindowResult, len(ends))
	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, end := range ends {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			logrus.Infof("Sampling for year window ending by year %d", end)
			r, err := ws.Sample(end, SampleDivisor(i, params.Window), streams[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	windows := make([][]Person, len(results))
	for i, r := range results {
		windows[i] = r.People
		if opts.Trace != nil {
			opts.Trace.RecordGroups(r.Groups...)
		}
	}
	people, ages := AddAge(Accumulate(windows), params.EndYear)
	if ages.Implausible > 0 || ages.Underage > 0 {
		logrus.Infof("Dropped %d implausible and %d underage people as of %d",
			ages.Implausible, ages.Underage, params.EndYear)
	}
	return &RollingResult{People: people, Ages: ages}, nil
}
