// Package provider implements the data backends of the engine: cohorts of
// arrested people and per-source rate tables, read from CSV files, a SQLite
// database or memory.
package provider

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cj-pipeline/darkfigure/sim"
)

// Backend kinds accepted by Open.
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

var validKinds = map[string]bool{
	KindCSV:    true,
	KindSQLite: true,
}

// IsValidKind reports whether kind names a backend.
func IsValidKind(kind string) bool {
	return validKinds[kind]
}

// ValidKindNames returns the sorted backend names.
func ValidKindNames() []string {
	names := make([]string, 0, len(validKinds))
	for k := range validKinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Set is an opened backend. Close releases whatever the backend holds.
type Set struct {
	sim.Providers
	closer io.Closer
}

// Close releases the backend.
func (s *Set) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open opens a backend for the window and smoothing mode of params and wraps
// each rate provider with the configured multipliers.
func Open(kind, path string, params sim.Params) (*Set, error) {
	var set Set
	switch kind {
	case KindCSV:
		p, err := OpenCSV(path, params.Window, params.Smoothing)
		if err != nil {
			return nil, err
		}
		set.Providers = p
	case KindSQLite:
		store, err := OpenSQLite(path, params.Window, params.Smoothing)
		if err != nil {
			return nil, err
		}
		set.closer = store
		set.Providers = sim.Providers{Cohort: store, Rates: make(map[sim.Source]sim.RateProvider, len(sim.Sources))}
		for _, src := range sim.Sources {
			set.Rates[src] = store.RateProvider(src)
		}
	default:
		return nil, fmt.Errorf("unknown data kind %q; valid: %s", kind, strings.Join(ValidKindNames(), ", "))
	}
	for _, src := range sim.Sources {
		set.Rates[src] = WithMultipliers(set.Rates[src], params.RateMult(src))
	}
	return &set, nil
}
