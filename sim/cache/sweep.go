package cache

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cj-pipeline/darkfigure/sim"
)

// Sweep runs base once per seed through the gate, at most workers at a time.
// Results are returned in seed order. Any failure cancels the remaining seeds.
func (g *Gate) Sweep(ctx context.Context, base sim.Params, seeds []int64, workers int) ([]*Result, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one seed", sim.ErrInvalidParams)
	}
	seen := make(map[int64]bool, len(seeds))
	for _, s := range seeds {
		if seen[s] {
			return nil, fmt.Errorf("%w: seed %d listed twice", sim.ErrInvalidParams, s)
		}
		seen[s] = true
	}

	results := make([]*Result, len(seeds))
	eg, ectx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	eg.SetLimit(workers)
	for i, seed := range seeds {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			p := base
			p.Seed = seed
			r, err := g.Get(ectx, p)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	st := g.Stats()
	logrus.Infof("Sweep of %d seeds done: %d computed, %d from disk, %d from memory",
		len(seeds), st.Computed, st.DiskHits, st.MemoryHits)
	return results, nil
}
