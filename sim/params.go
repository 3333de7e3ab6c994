package sim

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultSmoothing is the rate smoothing mode used when none is configured.
const DefaultSmoothing = "lr_pr"

// Params is the full parameter tuple of a rolling imputation run.
// Every field participates in the cache key.
type Params struct {
	StartYear int
	EndYear   int
	Window    int
	Seed      int64

	// Lambda overrides the per-row total-rate column when non-nil.
	Lambda *float64
	// Omega weights existing observed counts against the per-capita unobserved share.
	Omega     float64
	Smoothing string

	// RateMultNCVS and RateMultNSDUH scale arrest rates of rows matching a
	// demographic value (race, gender or age category).
	RateMultNCVS  map[string]float64
	RateMultNSDUH map[string]float64
}

// RateMult returns the multipliers configured for s.
func (p Params) RateMult(s Source) map[string]float64 {
	switch s {
	case SourceNCVS:
		return p.RateMultNCVS
	case SourceNSDUH:
		return p.RateMultNSDUH
	}
	return nil
}

// Validate checks that the tuple describes at least one window and that all
// numeric parameters are usable. Errors wrap ErrInvalidParams.
func (p Params) Validate() error {
	if p.Window < 1 {
		return fmt.Errorf("%w: window must be at least 1, got %d", ErrInvalidParams, p.Window)
	}
	if p.StartYear+p.Window > p.EndYear {
		return fmt.Errorf("%w: start year %d plus window %d is past end year %d",
			ErrInvalidParams, p.StartYear, p.Window, p.EndYear)
	}
	if math.IsNaN(p.Omega) || math.IsInf(p.Omega, 0) || p.Omega < 0 {
		return fmt.Errorf("%w: omega must be a finite non-negative number, got %f", ErrInvalidParams, p.Omega)
	}
	if p.Lambda != nil {
		lam := *p.Lambda
		if math.IsNaN(lam) || math.IsInf(lam, 0) || lam <= 0 {
			return fmt.Errorf("%w: lambda must be a finite positive number, got %f", ErrInvalidParams, lam)
		}
	}
	if p.Smoothing == "" {
		return fmt.Errorf("%w: smoothing mode is required", ErrInvalidParams)
	}
	for _, s := range Sources {
		encoded := make(map[string]string)
		for k, v := range p.RateMult(s) {
			if k == "" {
				return fmt.Errorf("%w: %s rate multiplier with empty key", ErrInvalidParams, s)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%w: %s rate multiplier %q must be a finite positive number, got %f",
					ErrInvalidParams, s, k, v)
			}
			if scaled := v * 1000; math.Abs(scaled-math.Round(scaled)) > 1e-6 {
				return fmt.Errorf("%w: %s rate multiplier %q has more than three decimals: %g",
					ErrInvalidParams, s, k, v)
			}
			code := rateCode(k, v)
			if other, ok := encoded[code]; ok {
				return fmt.Errorf("%w: %s rate multipliers %q and %q share cache code %s",
					ErrInvalidParams, s, other, k, code)
			}
			encoded[code] = k
		}
	}
	return nil
}

// WindowEnds returns every window end-year of the rolling run, in order.
func (p Params) WindowEnds() []int {
	var ends []int
	for end := p.StartYear + p.Window; end <= p.EndYear; end++ {
		ends = append(ends, end)
	}
	return ends
}

// CheckWindowEnd rejects a window end-year whose cohort year falls before
// StartYear or which itself lies after EndYear.
func (p Params) CheckWindowEnd(end int) error {
	year := end - p.Window
	if year < p.StartYear || end > p.EndYear {
		return fmt.Errorf("%w: last year %d not compatible with start year %d, end year %d and window %d",
			ErrWindowOutOfRange, end, p.StartYear, p.EndYear, p.Window)
	}
	return nil
}

// CacheDir is the directory component of the cache path: "<start>-<end>_<window>".
func (p Params) CacheDir() string {
	return fmt.Sprintf("%d-%d_%d", p.StartYear, p.EndYear, p.Window)
}

// CacheFile is the file component of the cache path, e.g.
// "lam1.00_om1.00_lr_pr_mcvsB1200-0.csv". The naming is a stable protocol:
// changing it invalidates every cached run.
func (p Params) CacheFile() string {
	var b strings.Builder
	if p.Lambda == nil {
		b.WriteString("nolam")
	} else {
		fmt.Fprintf(&b, "lam%.2f", *p.Lambda)
	}
	fmt.Fprintf(&b, "_om%.2f_%s", p.Omega, p.Smoothing)
	if p.RateMultNCVS != nil {
		b.WriteString("_mcvs" + rateString(p.RateMultNCVS))
	}
	if p.RateMultNSDUH != nil {
		b.WriteString("_mduh" + rateString(p.RateMultNSDUH))
	}
	fmt.Fprintf(&b, "-%d.csv", p.Seed)
	return b.String()
}

// CacheKey is the cache path relative to the cache root.
func (p Params) CacheKey() string {
	return filepath.Join(p.CacheDir(), p.CacheFile())
}

// rateString encodes multipliers as "<first letter of key><round(v*1000)>" joined by "_".
// Keys are sorted so the encoding does not depend on map iteration order.
func rateString(mult map[string]float64) string {
	keys := make([]string, 0, len(mult))
	for k := range mult {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, rateCode(k, mult[k]))
	}
	return strings.Join(parts, "_")
}

func rateCode(key string, v float64) string {
	r, _ := utf8.DecodeRuneInString(key)
	return fmt.Sprintf("%c%d", r, int64(math.Round(v*1000)))
}
