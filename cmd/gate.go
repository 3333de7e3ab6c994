package cmd

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/cache"
	"github.com/cj-pipeline/darkfigure/sim/provider"
	"github.com/cj-pipeline/darkfigure/sim/trace"
)

// newGate returns a cache gate whose misses open the configured backend for
// the requested tuple and run the rolling driver over it.
func newGate(s *settings, windowWorkers int, tr *trace.Trace, log *logrus.Entry) (*cache.Gate, error) {
	return cache.NewGate(s.CacheDir, s.LRUSize, func(ctx context.Context, p sim.Params) ([]sim.Person, error) {
		set, err := provider.Open(s.DataKind, s.DataPath, p)
		if err != nil {
			return nil, err
		}
		defer func() { _ = set.Close() }()

		r, err := sim.RunRolling(ctx, p, set.Providers, sim.RollingOptions{Workers: windowWorkers, Trace: tr})
		if err != nil {
			return nil, err
		}
		log.WithField("seed", p.Seed).Infof("Rolling run produced %d people (%d implausible and %d underage dropped)",
			len(r.People), r.Ages.Implausible, r.Ages.Underage)
		return r.People, nil
	})
}
