// Package trace records per-group imputation decisions for auditing.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// GroupRecord captures the estimator and sampler outcome for one
// (demographics × offense) group of one window.
type GroupRecord struct {
	WindowEnd int
	Source    string

	Race    string
	AgeCat  string
	Gender  string
	Offense string

	Observed int
	PopSize  int

	ArrestRate float64 // NaN when the group had no rate row
	Rate       float64 // total-rate factor (lambda override or row lambda)

	TotalCrimes         int
	Unobserved          int
	UnobservedPerPerson float64

	Divisor  float64 // n_samples_div of the window
	Samples  int     // tokens the group was due to draw
	Assigned int     // tokens actually assigned (0 when every weight was zero)

	Fallback bool // arrest rate missing or non-positive
	Clamped  bool // negative residual floored at zero
}
