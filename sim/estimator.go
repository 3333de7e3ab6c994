package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// GroupAggregate is one (demographics × offense) group of a window after the
// rate join. A group joined to several rate rows yields several aggregates.
type GroupAggregate struct {
	Key      GroupKey
	Observed int
	PopSize  int

	ArrestRate float64
	// Rate is the total-rate factor used: the lambda override or the row's lambda column.
	Rate float64

	TotalCrimes         int
	Unobserved          int
	UnobservedPerPerson float64

	// Fallback is set when the arrest rate was missing or non-positive and
	// the observed count was used as the total.
	Fallback bool
	// Clamped is set when rounding produced a negative residual that was floored to zero.
	Clamped bool
}

// AggregateGroups sums observed counts per group, counts distinct people per
// demographic group and joins every group to its rate rows. Groups without a
// matching rate row carry NaN rates.
func AggregateGroups(rows []LongRow, rates []RateRow, gov Governance) []GroupAggregate {
	observed := make(map[GroupKey]int)
	members := make(map[GroupKey]map[string]struct{})
	for _, r := range rows {
		k := r.Key()
		observed[k] += r.Count
		d := k.Demographic()
		if members[d] == nil {
			members[d] = make(map[string]struct{})
		}
		members[d][r.UID] = struct{}{}
	}

	byKey := make(map[GroupKey][]RateRow)
	for _, rr := range rates {
		byKey[rr.Key()] = append(byKey[rr.Key()], rr)
	}

	keys := make([]GroupKey, 0, len(observed))
	for k := range observed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	var aggs []GroupAggregate
	for _, k := range keys {
		base := GroupAggregate{
			Key:        k,
			Observed:   observed[k],
			PopSize:    len(members[k.Demographic()]),
			ArrestRate: math.NaN(),
			Rate:       math.NaN(),
		}
		matched := byKey[k]
		if len(matched) == 0 {
			aggs = append(aggs, base)
			continue
		}
		for _, rr := range matched {
			a := base
			a.ArrestRate = rr.Value(gov.ArrestColumn)
			a.Rate = rr.Value(gov.LambdaColumn)
			aggs = append(aggs, a)
		}
	}
	return aggs
}

// MaxTotalCrimes bounds the estimated total of a single group. Larger totals
// come from degenerate arrest rates and are treated as undefined.
const MaxTotalCrimes = math.MaxInt32

// CountUnobserved fills TotalCrimes, Unobserved and UnobservedPerPerson.
//
// With a positive arrest rate, total = observed / arrest_rate * rate, where
// rate is lam when set and the row's lambda otherwise, rounded half-to-even.
// A missing or non-positive arrest rate falls back to total = observed.
// Negative residuals are floored at zero. UnobservedPerPerson is NaN when the
// total cannot be computed or exceeds MaxTotalCrimes.
func CountUnobserved(a *GroupAggregate, lam *float64) {
	rate := a.Rate
	if lam != nil {
		rate = *lam
		a.Rate = rate
	}
	if !(a.ArrestRate > 0) {
		a.Fallback = true
		a.TotalCrimes = a.Observed
	} else {
		total := float64(a.Observed) / a.ArrestRate * rate
		if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) > MaxTotalCrimes {
			a.UnobservedPerPerson = math.NaN()
			return
		}
		a.TotalCrimes = int(math.RoundToEven(total))
	}
	a.Unobserved = a.TotalCrimes - a.Observed
	if a.Unobserved < 0 {
		a.Clamped = true
		a.Unobserved = 0
	}
	if a.PopSize == 0 {
		a.UnobservedPerPerson = math.NaN()
		return
	}
	a.UnobservedPerPerson = float64(a.Unobserved) / float64(a.PopSize)
}

// Estimate aggregates rows, logs data-quality anomalies and counts the
// unobserved offenses of every group. It fails with ErrUndefinedUnobserved
// if any group is left without a per-person count; no partial result is returned.
func Estimate(rows []LongRow, rates []RateRow, gov Governance, lam *float64) ([]GroupAggregate, error) {
	aggs := AggregateGroups(rows, rates, gov)
	logRateAnomalies(gov, aggs)

	var undefined []string
	for i := range aggs {
		CountUnobserved(&aggs[i], lam)
		a := aggs[i]
		if a.Clamped {
			logrus.Warnf("%s group %s: negative residual (total %d < observed %d) floored at zero",
				gov.Source, a.Key, a.TotalCrimes, a.Observed)
		}
		if math.IsNaN(a.UnobservedPerPerson) {
			undefined = append(undefined, a.Key.String())
		}
		logrus.Debugf("%s group %s: observed=%d pop=%d total=%d unobserved=%d per_person=%.4f",
			gov.Source, a.Key, a.Observed, a.PopSize, a.TotalCrimes, a.Unobserved, a.UnobservedPerPerson)
	}
	if len(undefined) > 0 {
		return nil, fmt.Errorf("%w: %s groups %s", ErrUndefinedUnobserved, gov.Source, strings.Join(undefined, ", "))
	}
	return aggs, nil
}

func logRateAnomalies(gov Governance, aggs []GroupAggregate) {
	for _, a := range aggs {
		switch {
		case math.IsNaN(a.ArrestRate):
			logrus.WithFields(logrus.Fields{
				"source": gov.Source, "group": a.Key.String(), "column": gov.ArrestColumn,
			}).Warn("group with NaN arrest rate; using observed count as total")
		case a.ArrestRate <= 0:
			logrus.WithFields(logrus.Fields{
				"source": gov.Source, "group": a.Key.String(), "column": gov.ArrestColumn, "rate": a.ArrestRate,
			}).Warn("group with non-positive arrest rate; using observed count as total")
		}
	}
}

// ResolveUnobserved collapses aggregates to one per group. A group whose
// aggregates disagree on the unobserved count is a *ConsistencyError; it is
// never averaged away.
func ResolveUnobserved(source Source, aggs []GroupAggregate) (map[GroupKey]GroupAggregate, error) {
	resolved := make(map[GroupKey]GroupAggregate, len(aggs))
	conflicts := make(map[GroupKey][]int)
	for _, a := range aggs {
		prev, ok := resolved[a.Key]
		if !ok {
			resolved[a.Key] = a
			continue
		}
		if prev.Unobserved != a.Unobserved {
			if conflicts[a.Key] == nil {
				conflicts[a.Key] = []int{prev.Unobserved}
			}
			if !containsInt(conflicts[a.Key], a.Unobserved) {
				conflicts[a.Key] = append(conflicts[a.Key], a.Unobserved)
			}
		}
	}
	if len(conflicts) == 0 {
		return resolved, nil
	}
	keys := make([]GroupKey, 0, len(conflicts))
	for k := range conflicts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	vals := conflicts[keys[0]]
	sort.Ints(vals)
	return nil, &ConsistencyError{Source: source, Key: keys[0], Values: vals}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
