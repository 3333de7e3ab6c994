package sim

import (
	"sort"
	"time"
)

// LongRow is one (person, offense) row of a melted cohort.
type LongRow struct {
	UID    string
	Race   string
	Gender string
	DOB    time.Time
	AgeCat AgeCategory

	Offense Offense
	// Count is the observed (arrest) count.
	Count int
	// Assigned is the number of imputed unobserved offenses.
	Assigned int
	// Total is Count + Assigned once the row has been sampled.
	Total int
}

// Key returns the demographic+offense grouping key of the row.
func (r LongRow) Key() GroupKey {
	return GroupKey{Race: r.Race, AgeCat: r.AgeCat, Gender: r.Gender, Offense: r.Offense}
}

// Melt converts a wide cohort into one row per (person, offense category).
// People are ordered by UID and offenses by canonical order, so the output
// does not depend on the provider's row order.
func Melt(people []Person) []LongRow {
	sorted := make([]Person, len(people))
	copy(sorted, people)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UID < sorted[j].UID })

	rows := make([]LongRow, 0, len(sorted)*len(Offenses))
	for _, p := range sorted {
		for _, o := range Offenses {
			rows = append(rows, LongRow{
				UID:     p.UID,
				Race:    p.Race,
				Gender:  p.Gender,
				DOB:     p.DOB,
				AgeCat:  p.AgeCat,
				Offense: o,
				Count:   p.Counts[o],
			})
		}
	}
	return rows
}

// Partition splits rows by the source governing their offense.
// Rows with an offense outside the governance table are returned under "".
func Partition(rows []LongRow) map[Source][]LongRow {
	parts := make(map[Source][]LongRow, len(Sources))
	for _, r := range rows {
		s, _ := SourceOf(r.Offense)
		parts[s] = append(parts[s], r)
	}
	return parts
}

// Pivot converts sampled rows back to one Person per UID with Counts set to
// each row's Total. People appear in order of first occurrence.
func Pivot(rows []LongRow) []Person {
	index := make(map[string]int)
	var people []Person
	for _, r := range rows {
		i, ok := index[r.UID]
		if !ok {
			i = len(people)
			index[r.UID] = i
			people = append(people, Person{
				UID:    r.UID,
				Race:   r.Race,
				Gender: r.Gender,
				DOB:    r.DOB,
				AgeCat: r.AgeCat,
				Counts: make(map[Offense]int, len(Offenses)),
			})
		}
		people[i].Counts[r.Offense] = r.Total
	}
	return people
}

// personKey identifies a person across windows once the age category is dropped.
type personKey struct {
	UID    string
	Race   string
	Gender string
	DOB    time.Time
}

// Accumulate sums window outputs per person, ignoring the window-local age
// category. The result is ordered by UID and carries no age category.
func Accumulate(windows [][]Person) []Person {
	index := make(map[personKey]int)
	var out []Person
	for _, people := range windows {
		for _, p := range people {
			k := personKey{UID: p.UID, Race: p.Race, Gender: p.Gender, DOB: p.DOB}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, Person{
					UID:    p.UID,
					Race:   p.Race,
					Gender: p.Gender,
					DOB:    p.DOB,
					Counts: make(map[Offense]int, len(Offenses)),
				})
			}
			for o, n := range p.Counts {
				out[i].Counts[o] += n
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UID != b.UID {
			return a.UID < b.UID
		}
		if a.Race != b.Race {
			return a.Race < b.Race
		}
		if a.Gender != b.Gender {
			return a.Gender < b.Gender
		}
		return a.DOB.Before(b.DOB)
	})
	return out
}

// Totals sums every offense column of a table.
func Totals(people []Person) map[Offense]int {
	totals := make(map[Offense]int, len(Offenses))
	for _, o := range Offenses {
		totals[o] = 0
	}
	for _, p := range people {
		for o, n := range p.Counts {
			totals[o] += n
		}
	}
	return totals
}
