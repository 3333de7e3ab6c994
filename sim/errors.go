package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every fatal condition of a rolling run wraps exactly one of these.
var (
	// ErrInvalidParams reports a parameter tuple that can never produce a run.
	ErrInvalidParams = errors.New("invalid simulation parameters")

	// ErrWindowOutOfRange reports a window end-year outside the configured bounds.
	ErrWindowOutOfRange = errors.New("window end-year out of range")

	// ErrConsistency reports a group that maps to more than one unobserved count.
	ErrConsistency = errors.New("data consistency violation")

	// ErrRowCountChanged reports rows that do not pivot back to one row per person and offense,
	// as when a cohort lists the same UID twice.
	ErrRowCountChanged = errors.New("sampling changed the number of rows")

	// ErrUndefinedUnobserved reports groups whose per-person unobserved count is undefined.
	ErrUndefinedUnobserved = errors.New("failed to assign unobserved offenses")
)

// ConsistencyError carries the group that resolved to conflicting unobserved counts.
// It unwraps to ErrConsistency.
type ConsistencyError struct {
	Source Source
	Key    GroupKey
	Values []int
}

func (e *ConsistencyError) Error() string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%s: %s group %s has conflicting unobserved counts [%s]",
		ErrConsistency, e.Source, e.Key, strings.Join(vals, " "))
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }
