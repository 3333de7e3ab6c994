package cmd

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every environment variable, e.g. DARKFIGURE_CACHE_DIR.
const envPrefix = "DARKFIGURE"

// Env is the lowest-precedence configuration layer. Its defaults are the
// built-in defaults of the CLI.
type Env struct {
	DataDir  string `envconfig:"DATA_DIR" default:"data/processed"`
	DataKind string `envconfig:"DATA_KIND" default:"csv"`
	CacheDir string `envconfig:"CACHE_DIR" default:"data/scratch/synth"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Workers  int    `envconfig:"WORKERS" default:"1"`
	LRUSize  int    `envconfig:"LRU_SIZE" default:"16"`
}

// LoadEnv reads DARKFIGURE_* variables.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("loading config from env: %w", err)
	}
	return env, nil
}
