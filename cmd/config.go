package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cj-pipeline/darkfigure/sim"
)

// RunConfig is a YAML run file. Every field is optional; set fields override
// the environment and are overridden by explicit flags.
type RunConfig struct {
	StartYear     *int               `yaml:"start_year" validate:"omitnil,gte=1900,lte=2100"`
	EndYear       *int               `yaml:"end_year" validate:"omitnil,gte=1900,lte=2100"`
	Window        *int               `yaml:"window" validate:"omitnil,min=1"`
	Seeds         []int64            `yaml:"seeds" validate:"omitempty,unique"`
	Lambda        *float64           `yaml:"lambda,omitempty" validate:"omitnil,gt=0"`
	Omega         *float64           `yaml:"omega" validate:"omitnil,gte=0"`
	Smoothing     string             `yaml:"smoothing"`
	RateMultNCVS  map[string]float64 `yaml:"rate_mult_ncvs,omitempty" validate:"omitempty,dive,keys,required,endkeys,gt=0"`
	RateMultNSDUH map[string]float64 `yaml:"rate_mult_nsduh,omitempty" validate:"omitempty,dive,keys,required,endkeys,gt=0"`
	Data          DataConfig         `yaml:"data"`
	CacheDir      string             `yaml:"cache_dir"`
	Workers       *int               `yaml:"workers" validate:"omitnil,min=1"`
}

// DataConfig selects the input backend.
type DataConfig struct {
	Kind string `yaml:"kind" validate:"omitempty,oneof=csv sqlite"`
	Path string `yaml:"path"`
}

// LoadRunConfig reads and validates a YAML run file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Report YAML key names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field-level constraints. Cross-field rules (years against
// the window) are left to sim.Params.Validate once all layers are merged.
func (c *RunConfig) Validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "RunConfig.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", sim.ErrInvalidParams, strings.Join(msgs, "; "))
}

// apply overlays the fields set in c onto s.
func (c *RunConfig) apply(s *settings) {
	if c.StartYear != nil {
		s.Params.StartYear = *c.StartYear
	}
	if c.EndYear != nil {
		s.Params.EndYear = *c.EndYear
	}
	if c.Window != nil {
		s.Params.Window = *c.Window
	}
	if len(c.Seeds) > 0 {
		s.Seeds = append([]int64(nil), c.Seeds...)
	}
	if c.Lambda != nil {
		lam := *c.Lambda
		s.Params.Lambda = &lam
	}
	if c.Omega != nil {
		s.Params.Omega = *c.Omega
	}
	if c.Smoothing != "" {
		s.Params.Smoothing = c.Smoothing
	}
	if c.RateMultNCVS != nil {
		s.Params.RateMultNCVS = c.RateMultNCVS
	}
	if c.RateMultNSDUH != nil {
		s.Params.RateMultNSDUH = c.RateMultNSDUH
	}
	if c.Data.Kind != "" {
		s.DataKind = c.Data.Kind
	}
	if c.Data.Path != "" {
		s.DataPath = c.Data.Path
	}
	if c.CacheDir != "" {
		s.CacheDir = c.CacheDir
	}
	if c.Workers != nil {
		s.Workers = *c.Workers
	}
}
