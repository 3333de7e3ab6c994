package sim

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Assignment is the number of imputed offenses drawn for one person.
type Assignment struct {
	UID   string
	Count int
}

// SampleCount returns how many tokens a group draws: unobserved / div,
// rounded half-to-even.
func SampleCount(unobserved int, div float64) int {
	if div <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(unobserved) / div))
}

// SampleGroup draws n tokens with replacement from uids, with probability
// proportional to weights, and collapses repeated draws into one Assignment
// per person. Assignments follow the order of uids; people never drawn are
// omitted. Fewer than one token or a non-positive total weight is a no-op.
// Weights must be non-negative.
func SampleGroup(uids []string, weights []float64, n int, rng *rand.Rand) []Assignment {
	if n < 1 || len(uids) == 0 || !(floats.Sum(weights) > 0) {
		return nil
	}
	cat := distuv.NewCategorical(weights, rng)
	counts := make([]int, len(uids))
	for i := 0; i < n; i++ {
		counts[int(cat.Rand())]++
	}
	out := make([]Assignment, 0, len(uids))
	for i, c := range counts {
		if c > 0 {
			out = append(out, Assignment{UID: uids[i], Count: c})
		}
	}
	return out
}

// groupSample is the sampler's outcome for one group.
type groupSample struct {
	Samples     int
	Assignments []Assignment
}

// SampleUnobserved draws the imputed offenses of every group in rows and
// writes them to Assigned and Total in place. Weights are
// unobserved_per_person + omega * observed count. Groups are visited in key
// order so that a given rng always yields the same assignment.
func SampleUnobserved(rows []LongRow, groups map[GroupKey]GroupAggregate, omega, div float64, rng *rand.Rand) map[GroupKey]groupSample {
	members := make(map[GroupKey][]int)
	for i, r := range rows {
		members[r.Key()] = append(members[r.Key()], i)
	}
	keys := make([]GroupKey, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	results := make(map[GroupKey]groupSample, len(keys))
	for _, k := range keys {
		idx := members[k]
		agg := groups[k]
		uids := make([]string, len(idx))
		weights := make([]float64, len(idx))
		for j, i := range idx {
			uids[j] = rows[i].UID
			weights[j] = agg.UnobservedPerPerson + omega*float64(rows[i].Count)
		}
		n := SampleCount(agg.Unobserved, div)
		assigned := SampleGroup(uids, weights, n, rng)
		results[k] = groupSample{Samples: n, Assignments: assigned}

		byUID := make(map[string]int, len(assigned))
		for _, a := range assigned {
			byUID[a.UID] = a.Count
		}
		for _, i := range idx {
			rows[i].Assigned = byUID[rows[i].UID]
			rows[i].Total = rows[i].Count + rows[i].Assigned
		}
	}
	return results
}
