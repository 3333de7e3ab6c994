package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/cj-pipeline/darkfigure/sim/trace"
)

// WindowResult is the fully-imputed wide cohort of one window end-year.
type WindowResult struct {
	End    int
	People []Person
	Groups []trace.GroupRecord
}

// WindowSampler produces imputed cohort snapshots for single window end-years.
// It holds no random state; the generator is supplied per call.
type WindowSampler struct {
	params    Params
	providers Providers
}

// NewWindowSampler validates params and providers before any data is read.
func NewWindowSampler(params Params, providers Providers) (*WindowSampler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := providers.Validate(); err != nil {
		return nil, err
	}
	return &WindowSampler{params: params, providers: providers}, nil
}

// Sample imputes unobserved offenses for the window ending in end. Each
// group draws round(unobserved / div) tokens from rng.
func (w *WindowSampler) Sample(end int, div float64, rng *rand.Rand) (*WindowResult, error) {
	if err := w.params.CheckWindowEnd(end); err != nil {
		return nil, err
	}
	year := end - w.params.Window

	cohort, err := w.providers.Cohort.Cohort(year)
	if err != nil {
		return nil, fmt.Errorf("loading cohort for %d: %w", year, err)
	}

	rows := Melt(cohort)
	for _, r := range rows {
		if r.Count < 0 {
			return nil, fmt.Errorf("%w: cohort %d has negative %s count %d for %s",
				ErrConsistency, year, r.Offense, r.Count, r.UID)
		}
	}
	parts := Partition(rows)
	if stray := parts[""]; len(stray) > 0 {
		return nil, fmt.Errorf("%w: %d rows with ungoverned offense %q", ErrConsistency, len(stray), stray[0].Offense)
	}

	result := &WindowResult{End: end}
	var combined []LongRow
	for _, src := range Sources {
		part := parts[src]
		rates, err := w.providers.Rates[src].Rates(year)
		if err != nil {
			return nil, fmt.Errorf("loading %s rates for %d: %w", src, year, err)
		}
		records, err := w.addUnobserved(src, part, rates, div, rng)
		if err != nil {
			return nil, fmt.Errorf("window ending %d: %w", end, err)
		}
		for i := range records {
			records[i].WindowEnd = end
		}
		result.Groups = append(result.Groups, records...)
		combined = append(combined, part...)
	}

	result.People = Pivot(combined)
	if want := len(result.People) * len(Offenses); len(combined) != want {
		return nil, fmt.Errorf("%w: window ending %d has %d rows for %d people",
			ErrRowCountChanged, end, len(combined), len(result.People))
	}
	logrus.Debugf("window ending %d: %d people, %d groups", end, len(result.People), len(result.Groups))
	return result, nil
}

// addUnobserved runs the estimator and sampler over one source's partition,
// filling Assigned and Total of rows in place.
func (w *WindowSampler) addUnobserved(src Source, rows []LongRow, rates []RateRow, div float64, rng *rand.Rand) ([]trace.GroupRecord, error) {
	gov, err := GovernanceOf(src)
	if err != nil {
		return nil, err
	}
	aggs, err := Estimate(rows, rates, gov, w.params.Lambda)
	if err != nil {
		return nil, err
	}
	groups, err := ResolveUnobserved(src, aggs)
	if err != nil {
		return nil, err
	}
	samples := SampleUnobserved(rows, groups, w.params.Omega, div, rng)

	records := make([]trace.GroupRecord, 0, len(aggs))
	seen := make(map[GroupKey]bool, len(groups))
	for _, a := range aggs {
		if seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		s := samples[a.Key]
		assigned := 0
		for _, as := range s.Assignments {
			assigned += as.Count
		}
		records = append(records, trace.GroupRecord{
			Source:              string(src),
			Race:                a.Key.Race,
			AgeCat:              string(a.Key.AgeCat),
			Gender:              a.Key.Gender,
			Offense:             string(a.Key.Offense),
			Observed:            a.Observed,
			PopSize:             a.PopSize,
			ArrestRate:          a.ArrestRate,
			Rate:                a.Rate,
			TotalCrimes:         a.TotalCrimes,
			Unobserved:          a.Unobserved,
			UnobservedPerPerson: a.UnobservedPerPerson,
			Divisor:             div,
			Samples:             s.Samples,
			Assigned:            assigned,
			Fallback:            a.Fallback,
			Clamped:             a.Clamped,
		})
	}
	return records, nil
}
