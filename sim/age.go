package sim

import "time"

// AgeCategory is the coarse age bucket shared by the cohort and the rate tables.
type AgeCategory string

const (
	AgeUnder18 AgeCategory = "< 18"
	Age18To29  AgeCategory = "18-29"
	AgeOver29  AgeCategory = "> 29"
)

// minPlausibleAge is the age below which a date of birth is treated as a data-entry error.
const minPlausibleAge = 10

// AgeAt returns the number of completed years between dob and January 1 of year.
func AgeAt(dob time.Time, year int) int {
	age := year - dob.Year()
	// January 1 only counts as a birthday for people born on January 1.
	if dob.Month() != time.January || dob.Day() != 1 {
		age--
	}
	return age
}

// CategorizeAge buckets a completed age.
func CategorizeAge(age int) AgeCategory {
	switch {
	case age < 18:
		return AgeUnder18
	case age <= 29:
		return Age18To29
	default:
		return AgeOver29
	}
}

// AgeCategoryAt is CategorizeAge(AgeAt(dob, year)).
func AgeCategoryAt(dob time.Time, year int) AgeCategory {
	return CategorizeAge(AgeAt(dob, year))
}

// AgeFilterStats counts the rows removed by AddAge.
type AgeFilterStats struct {
	Implausible int
	Underage    int
}

// AddAge re-derives the age category of every person as of endYear.
// People younger than minPlausibleAge and people in the under-18 bucket are removed.
func AddAge(people []Person, endYear int) ([]Person, AgeFilterStats) {
	var stats AgeFilterStats
	out := make([]Person, 0, len(people))
	for _, p := range people {
		age := AgeAt(p.DOB, endYear)
		if age < minPlausibleAge {
			stats.Implausible++
			continue
		}
		cat := CategorizeAge(age)
		if cat == AgeUnder18 {
			stats.Underage++
			continue
		}
		p.AgeCat = cat
		out = append(out, p)
	}
	return out, stats
}
