package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/cj-pipeline/darkfigure/sim"
	"github.com/cj-pipeline/darkfigure/sim/provider"
)

// settings is the merged configuration of one invocation.
type settings struct {
	Params   sim.Params
	Seeds    []int64
	DataKind string
	DataPath string
	CacheDir string
	Workers  int
	LRUSize  int
}

// paramFlags are the flags shared by run, sweep and cache-key.
type paramFlags struct {
	configPath    string
	startYear     int
	endYear       int
	window        int
	seeds         []int64
	lambda        float64
	omega         float64
	smoothing     string
	rateMultNCVS  map[string]string
	rateMultNSDUH map[string]string
	dataKind      string
	dataPath      string
	cacheDir      string
	workers       int
	lruSize       int
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML run file")
	fs.IntVar(&f.startYear, "start-year", 1992, "First year of the rolling period")
	fs.IntVar(&f.endYear, "end-year", 2012, "Last year of the rolling period")
	fs.IntVar(&f.window, "window", 3, "Window length in years")
	fs.Int64SliceVar(&f.seeds, "seed", []int64{0}, "Seed(s); sweep runs every seed, run and cache-key use the first")
	fs.Float64Var(&f.lambda, "lambda", 0, "Total-rate override (default: rate table lambda)")
	fs.Float64Var(&f.omega, "omega", 1, "Weight of observed counts in the assignment weights")
	fs.StringVar(&f.smoothing, "smoothing", sim.DefaultSmoothing, "Rate smoothing mode")
	fs.StringToStringVar(&f.rateMultNCVS, "rate-mult-ncvs", nil, "NCVS arrest-rate multipliers, e.g. Black=1.2")
	fs.StringToStringVar(&f.rateMultNSDUH, "rate-mult-nsduh", nil, "NSDUH arrest-rate multipliers, e.g. Male=0.9")
	fs.StringVar(&f.dataKind, "data-kind", "", "Input backend: "+strings.Join(provider.ValidKindNames(), ", "))
	fs.StringVar(&f.dataPath, "data-path", "", "CSV data directory or SQLite file")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "Root of the result cache")
	fs.IntVar(&f.workers, "workers", 0, "Parallel windows per run and parallel seeds per sweep")
	fs.IntVar(&f.lruSize, "lru-size", 0, "Results kept in memory by the cache gate")
}

// resolve merges defaults, environment, run file and flags, in increasing
// precedence, and validates the result.
func (f *paramFlags) resolve(fs *pflag.FlagSet) (*settings, error) {
	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	s := &settings{
		Params: sim.Params{
			StartYear: f.startYear,
			EndYear:   f.endYear,
			Window:    f.window,
			Omega:     f.omega,
			Smoothing: f.smoothing,
		},
		Seeds:    append([]int64(nil), f.seeds...),
		DataKind: env.DataKind,
		DataPath: env.DataDir,
		CacheDir: env.CacheDir,
		Workers:  env.Workers,
		LRUSize:  env.LRUSize,
	}

	if f.configPath != "" {
		cfg, err := LoadRunConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg.apply(s)
	}

	if fs.Changed("start-year") {
		s.Params.StartYear = f.startYear
	}
	if fs.Changed("end-year") {
		s.Params.EndYear = f.endYear
	}
	if fs.Changed("window") {
		s.Params.Window = f.window
	}
	if fs.Changed("seed") {
		s.Seeds = append([]int64(nil), f.seeds...)
	}
	if fs.Changed("lambda") {
		lam := f.lambda
		s.Params.Lambda = &lam
	}
	if fs.Changed("omega") {
		s.Params.Omega = f.omega
	}
	if fs.Changed("smoothing") {
		s.Params.Smoothing = f.smoothing
	}
	if fs.Changed("rate-mult-ncvs") {
		if s.Params.RateMultNCVS, err = parseMultipliers("rate-mult-ncvs", f.rateMultNCVS); err != nil {
			return nil, err
		}
	}
	if fs.Changed("rate-mult-nsduh") {
		if s.Params.RateMultNSDUH, err = parseMultipliers("rate-mult-nsduh", f.rateMultNSDUH); err != nil {
			return nil, err
		}
	}
	if fs.Changed("data-kind") {
		s.DataKind = f.dataKind
	}
	if fs.Changed("data-path") {
		s.DataPath = f.dataPath
	}
	if fs.Changed("cache-dir") {
		s.CacheDir = f.cacheDir
	}
	if fs.Changed("workers") {
		s.Workers = f.workers
	}
	if fs.Changed("lru-size") {
		s.LRUSize = f.lruSize
	}

	if len(s.Seeds) == 0 {
		return nil, fmt.Errorf("%w: at least one seed is required", sim.ErrInvalidParams)
	}
	s.Params.Seed = s.Seeds[0]
	if err := s.Params.Validate(); err != nil {
		return nil, err
	}
	if !provider.IsValidKind(s.DataKind) {
		return nil, fmt.Errorf("%w: unknown data kind %q; valid: %s",
			sim.ErrInvalidParams, s.DataKind, strings.Join(provider.ValidKindNames(), ", "))
	}
	if s.Workers < 1 {
		return nil, fmt.Errorf("%w: workers must be at least 1, got %d", sim.ErrInvalidParams, s.Workers)
	}
	return s, nil
}

// parseMultipliers converts key=value flag pairs to multipliers.
func parseMultipliers(flag string, raw map[string]string) (map[string]float64, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]float64, len(raw))
	for _, k := range keys {
		v, err := strconv.ParseFloat(raw[k], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: --%s %s=%s: %v", sim.ErrInvalidParams, flag, k, raw[k], err)
		}
		out[k] = v
	}
	return out, nil
}
