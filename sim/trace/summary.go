package trace

// TraceSummary aggregates statistics from a Trace.
type TraceSummary struct {
	Groups         int
	FallbackGroups int
	ClampedGroups  int
	NoOpGroups     int // groups due at least one token that assigned none

	TotalObserved   int
	TotalUnobserved int
	TotalAssigned   int

	AssignedBySource map[string]int
	AssignedByWindow map[int]int
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *TraceSummary {
	summary := &TraceSummary{
		AssignedBySource: make(map[string]int),
		AssignedByWindow: make(map[int]int),
	}
	if t == nil {
		return summary
	}

	summary.Groups = len(t.Groups)
	for _, g := range t.Groups {
		if g.Fallback {
			summary.FallbackGroups++
		}
		if g.Clamped {
			summary.ClampedGroups++
		}
		if g.Samples >= 1 && g.Assigned == 0 {
			summary.NoOpGroups++
		}
		summary.TotalObserved += g.Observed
		summary.TotalUnobserved += g.Unobserved
		summary.TotalAssigned += g.Assigned
		summary.AssignedBySource[g.Source] += g.Assigned
		summary.AssignedByWindow[g.WindowEnd] += g.Assigned
	}
	return summary
}
