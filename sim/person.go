package sim

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the on-disk date format for dates of birth.
const DateLayout = "2006-01-02"

// Person is one wide-format cohort row: identity, demographics and one
// count per offense category. Counts missing from the map are zero.
type Person struct {
	UID    string
	Race   string
	Gender string
	DOB    time.Time
	AgeCat AgeCategory
	Counts map[Offense]int
}

// Count returns the count recorded for o.
func (p Person) Count(o Offense) int {
	return p.Counts[o]
}

// Clone returns a deep copy of p.
func (p Person) Clone() Person {
	c := p
	c.Counts = make(map[Offense]int, len(p.Counts))
	for o, n := range p.Counts {
		c.Counts[o] = n
	}
	return c
}

// ClonePeople deep-copies a table.
func ClonePeople(people []Person) []Person {
	out := make([]Person, len(people))
	for i, p := range people {
		out[i] = p.Clone()
	}
	return out
}

// GroupKey identifies a demographic group, optionally narrowed to one offense.
type GroupKey struct {
	Race    string
	AgeCat  AgeCategory
	Gender  string
	Offense Offense
}

// Demographic drops the offense from k.
func (k GroupKey) Demographic() GroupKey {
	k.Offense = ""
	return k
}

func (k GroupKey) String() string {
	if k.Offense == "" {
		return fmt.Sprintf("(%s, %s, %s)", k.Race, k.AgeCat, k.Gender)
	}
	return fmt.Sprintf("(%s, %s, %s, %s)", k.Race, k.AgeCat, k.Gender, k.Offense)
}

func (k GroupKey) less(o GroupKey) bool {
	if k.Race != o.Race {
		return k.Race < o.Race
	}
	if k.AgeCat != o.AgeCat {
		return k.AgeCat < o.AgeCat
	}
	if k.Gender != o.Gender {
		return k.Gender < o.Gender
	}
	return k.Offense < o.Offense
}

// RateRow is one row of a rate provider's table. Missing values are NaN.
type RateRow struct {
	Race             string
	AgeCat           AgeCategory
	Gender           string
	Offense          Offense
	ArrestRate       float64
	ArrestRateSmooth float64
	Lambda           float64
	LambdaSmooth     float64
}

// Key returns the grouping key the row joins on.
func (r RateRow) Key() GroupKey {
	return GroupKey{Race: r.Race, AgeCat: r.AgeCat, Gender: r.Gender, Offense: r.Offense}
}

// Value returns the value stored under c, or NaN for an unknown column.
func (r RateRow) Value(c RateColumn) float64 {
	switch c {
	case ColArrestRate:
		return r.ArrestRate
	case ColArrestRateSmooth:
		return r.ArrestRateSmooth
	case ColLambda:
		return r.Lambda
	case ColLambdaSmooth:
		return r.LambdaSmooth
	}
	return math.NaN()
}

// Scale multiplies both arrest-rate columns by m.
func (r RateRow) Scale(m float64) RateRow {
	r.ArrestRate *= m
	r.ArrestRateSmooth *= m
	return r
}
