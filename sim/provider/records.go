package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cj-pipeline/darkfigure/sim"
)

// Demographics is one person of the administrative records.
type Demographics struct {
	UID    string
	Race   string
	Gender string
	DOB    time.Time
}

// Arrest is one recorded arrest.
type Arrest struct {
	UID     string
	Year    int
	Offense sim.Offense
}

// Records is an in-memory CohortProvider built from person and arrest records.
// Safe for concurrent use once constructed.
type Records struct {
	window  int
	people  []Demographics
	arrests map[string][]Arrest
}

// NewRecords indexes people and arrests for cohorts spanning window+1 years.
// Every arrest must reference a known person.
func NewRecords(window int, people []Demographics, arrests []Arrest) (*Records, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	sorted := make([]Demographics, len(people))
	copy(sorted, people)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	known := make(map[string]bool, len(sorted))
	for _, p := range sorted {
		if known[p.UID] {
			return nil, fmt.Errorf("duplicate person %q", p.UID)
		}
		known[p.UID] = true
	}
	byUID := make(map[string][]Arrest)
	for _, a := range arrests {
		if !known[a.UID] {
			return nil, fmt.Errorf("arrest references unknown person %q", a.UID)
		}
		byUID[a.UID] = append(byUID[a.UID], a)
	}
	return &Records{window: window, people: sorted, arrests: byUID}, nil
}

// Cohort returns everyone arrested at least once in [year, year+window], with
// per-offense counts and the age category as of year+window.
func (r *Records) Cohort(year int) ([]sim.Person, error) {
	last := year + r.window
	var out []sim.Person
	for _, p := range r.people {
		counts := make(map[sim.Offense]int)
		for _, a := range r.arrests[p.UID] {
			if a.Year >= year && a.Year <= last {
				counts[a.Offense]++
			}
		}
		if len(counts) == 0 {
			continue
		}
		out = append(out, newPerson(p, counts, last))
	}
	logrus.Debugf("cohort %d-%d: %d people", year, last, len(out))
	return out, nil
}

func newPerson(d Demographics, counts map[sim.Offense]int, refYear int) sim.Person {
	return sim.Person{
		UID:    d.UID,
		Race:   d.Race,
		Gender: d.Gender,
		DOB:    d.DOB,
		AgeCat: sim.AgeCategoryAt(d.DOB, refYear),
		Counts: counts,
	}
}

// YearRate is a rate row tagged with the window start year it applies to.
type YearRate struct {
	Year int
	Row  sim.RateRow
}

// RateTable is an in-memory RateProvider for one source.
type RateTable struct {
	source sim.Source
	byYear map[int][]sim.RateRow
}

// NewRateTable indexes rows by year.
func NewRateTable(source sim.Source, rows []YearRate) *RateTable {
	byYear := make(map[int][]sim.RateRow)
	for _, r := range rows {
		byYear[r.Year] = append(byYear[r.Year], r.Row)
	}
	return &RateTable{source: source, byYear: byYear}
}

// Rates returns a copy of the rows for year. A year without rows is a
// data-quality anomaly, not an error: every group falls back to its observed count.
func (t *RateTable) Rates(year int) ([]sim.RateRow, error) {
	rows := t.byYear[year]
	if len(rows) == 0 {
		logrus.Warnf("no %s rates for %d", t.source, year)
		return nil, nil
	}
	out := make([]sim.RateRow, len(rows))
	copy(out, rows)
	return out, nil
}
