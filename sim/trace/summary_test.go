package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	tr := NewTrace(TraceConfig{Level: TraceLevelGroups})

	// WHEN summarized
	summary := Summarize(tr)

	// THEN all counts are zero
	if summary.Groups != 0 || summary.TotalAssigned != 0 || summary.TotalObserved != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
	if len(summary.AssignedBySource) != 0 || len(summary.AssignedByWindow) != 0 {
		t.Error("expected empty distributions")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.Groups != 0 {
		t.Errorf("expected 0 groups, got %d", summary.Groups)
	}
	if summary.AssignedBySource == nil {
		t.Error("expected non-nil map")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN records from two windows and both sources
	tr := NewTrace(TraceConfig{Level: TraceLevelGroups})
	tr.RecordGroups(
		GroupRecord{WindowEnd: 2003, Source: "ncvs", Observed: 10, Unobserved: 10, Samples: 10, Assigned: 10},
		GroupRecord{WindowEnd: 2003, Source: "nsduh", Observed: 4, Unobserved: 0, Fallback: true},
		GroupRecord{WindowEnd: 2004, Source: "ncvs", Observed: 2, Unobserved: 8, Samples: 2, Assigned: 2},
		GroupRecord{WindowEnd: 2004, Source: "nsduh", Observed: 0, Unobserved: 3, Samples: 1, Assigned: 0},
		GroupRecord{WindowEnd: 2004, Source: "nsduh", Observed: 5, Clamped: true},
	)

	// WHEN summarized
	s := Summarize(tr)

	// THEN totals and distributions match
	if s.Groups != 5 {
		t.Errorf("groups = %d, want 5", s.Groups)
	}
	if s.FallbackGroups != 1 || s.ClampedGroups != 1 || s.NoOpGroups != 1 {
		t.Errorf("fallback/clamped/noop = %d/%d/%d, want 1/1/1", s.FallbackGroups, s.ClampedGroups, s.NoOpGroups)
	}
	if s.TotalObserved != 21 || s.TotalUnobserved != 21 || s.TotalAssigned != 12 {
		t.Errorf("totals = %d/%d/%d, want 21/21/12", s.TotalObserved, s.TotalUnobserved, s.TotalAssigned)
	}
	if s.AssignedBySource["ncvs"] != 12 || s.AssignedBySource["nsduh"] != 0 {
		t.Errorf("by source = %v", s.AssignedBySource)
	}
	if s.AssignedByWindow[2003] != 10 || s.AssignedByWindow[2004] != 2 {
		t.Errorf("by window = %v", s.AssignedByWindow)
	}
}
