package sim

import (
	"fmt"
	"sync/atomic"
	"time"
)

func mustDate(s string) time.Time {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func testPerson(uid, race, gender, dob string, age AgeCategory, counts map[Offense]int) Person {
	if counts == nil {
		counts = map[Offense]int{}
	}
	return Person{UID: uid, Race: race, Gender: gender, DOB: mustDate(dob), AgeCat: age, Counts: counts}
}

// staticCohort returns the same cohort for every listed year and counts calls.
type staticCohort struct {
	byYear map[int][]Person
	calls  atomic.Int32
}

func (c *staticCohort) Cohort(year int) ([]Person, error) {
	c.calls.Add(1)
	people, ok := c.byYear[year]
	if !ok {
		return nil, fmt.Errorf("no cohort for %d", year)
	}
	return ClonePeople(people), nil
}

// staticRates serves the same table for every year.
type staticRates struct {
	rows []RateRow
}

func (r staticRates) Rates(int) ([]RateRow, error) {
	out := make([]RateRow, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func rateRow(race string, age AgeCategory, gender string, o Offense, arrest, lambda float64) RateRow {
	return RateRow{
		Race: race, AgeCat: age, Gender: gender, Offense: o,
		ArrestRate: arrest, ArrestRateSmooth: arrest, Lambda: lambda, LambdaSmooth: lambda,
	}
}

// scenarioPeople is one demographic group of two people: 10 robberies and none.
func scenarioPeople() []Person {
	return []Person{
		testPerson("a", "Black", "Male", "1980-03-02", Age18To29, map[Offense]int{Robbery: 10}),
		testPerson("b", "Black", "Male", "1981-07-15", Age18To29, nil),
	}
}

// scenarioProviders serves scenarioPeople for every listed cohort year with a
// 0.5 arrest rate for robbery and no other rates.
func scenarioProviders(years ...int) (Providers, *staticCohort) {
	cohort := &staticCohort{byYear: map[int][]Person{}}
	for _, y := range years {
		cohort.byYear[y] = scenarioPeople()
	}
	return Providers{
		Cohort: cohort,
		Rates: map[Source]RateProvider{
			SourceNCVS:  staticRates{rows: []RateRow{rateRow("Black", Age18To29, "Male", Robbery, 0.5, 1)}},
			SourceNSDUH: staticRates{},
		},
	}, cohort
}

func scenarioParams() Params {
	return Params{StartYear: 2000, EndYear: 2003, Window: 3, Seed: 0, Omega: 1, Smoothing: DefaultSmoothing}
}

func sumCounts(people []Person, o Offense) int {
	total := 0
	for _, p := range people {
		total += p.Counts[o]
	}
	return total
}
