package provider

import (
	"sort"

	"github.com/cj-pipeline/darkfigure/sim"
)

type multiplied struct {
	inner sim.RateProvider
	keys  []string
	mult  map[string]float64
}

// WithMultipliers scales the arrest rates served by rp. A row is multiplied
// by every multiplier whose key equals its race, gender or age category.
// An empty multiplier set returns rp unchanged.
func WithMultipliers(rp sim.RateProvider, mult map[string]float64) sim.RateProvider {
	if len(mult) == 0 {
		return rp
	}
	keys := make([]string, 0, len(mult))
	for k := range mult {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &multiplied{inner: rp, keys: keys, mult: mult}
}

func (m *multiplied) Rates(year int) ([]sim.RateRow, error) {
	rows, err := m.inner.Rates(year)
	if err != nil {
		return nil, err
	}
	out := make([]sim.RateRow, len(rows))
	for i, r := range rows {
		f := 1.0
		for _, k := range m.keys {
			if k == r.Race || k == r.Gender || k == string(r.AgeCat) {
				f *= m.mult[k]
			}
		}
		out[i] = r.Scale(f)
	}
	return out, nil
}
