// Package sim provides the rolling synthetic crime-assignment engine.
//
// Administrative arrest records undercount offending. The engine combines
// per-person arrest counts with survey-based arrest rates to impute the
// unobserved ("dark figure") offenses of every person, while keeping group
// totals consistent with the rates.
//
// # Reading Guide
//
//   - offense.go: offense categories and the offense → survey governance table
//   - estimator.go: group aggregation, rate join and unobserved-count estimation
//   - sampler.go: weighted sampling with replacement of imputed offenses
//   - window.go: one window end-year (melt, partition, estimate, sample, pivot)
//   - rolling.go: the rolling driver over successive window end-years
//
// # Determinism
//
// There is no ambient randomness. Each window draws from its own stream of a
// PartitionedRNG seeded by Params.Seed, so identical parameters produce
// identical tables whether windows run sequentially or concurrently.
//
// Data enters through the CohortProvider and RateProvider interfaces;
// implementations live in sim/provider. Results are materialized and cached
// by sim/cache.
package sim
