package sim

import "fmt"

// CohortProvider supplies the individual-level cohort for a reference year:
// people with per-offense observed counts over [year, year+window] and their
// window-local age category.
type CohortProvider interface {
	Cohort(year int) ([]Person, error)
}

// RateProvider supplies one source's demographic-by-offense rate table for a
// reference year.
type RateProvider interface {
	Rates(year int) ([]RateRow, error)
}

// Providers bundles the cohort provider with one rate provider per source.
type Providers struct {
	Cohort CohortProvider
	Rates  map[Source]RateProvider
}

// Validate checks that every governing source has a rate provider.
func (p Providers) Validate() error {
	if p.Cohort == nil {
		return fmt.Errorf("%w: no cohort provider", ErrInvalidParams)
	}
	for _, s := range Sources {
		if p.Rates[s] == nil {
			return fmt.Errorf("%w: no rate provider for source %q", ErrInvalidParams, s)
		}
	}
	return nil
}
