package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/klothoplatform/stackplan/pkg/provision"
)

// Env holds the defaults for the CLI flags, read from the environment.
type Env struct {
	// KindsDir is a directory of kind table files added on top of the embedded defaults.
	KindsDir string `env:"STACKPLAN_KINDS_DIR"`
	// Output is where plans are written; empty means stdout.
	Output      string `env:"STACKPLAN_OUTPUT"`
	Format      string `env:"STACKPLAN_FORMAT" envDefault:"yaml"`
	Region      string `env:"STACKPLAN_REGION" envDefault:"us-east-1"`
	Account     string `env:"STACKPLAN_ACCOUNT"`
	Concurrency int    `env:"STACKPLAN_CONCURRENCY" envDefault:"4"`
	LogLevel    string `env:"LOG_LEVEL"`
}

func Load() (*Env, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from the given variables instead of the process environment
// when vars is not nil.
func LoadFrom(vars map[string]string) (*Env, error) {
	cfg := &Env{}
	opts := env.Options{Environment: vars}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e *Env) Validate() error {
	if _, err := plan.ParseFormat(e.Format); err != nil {
		return fmt.Errorf("STACKPLAN_FORMAT: %w", err)
	}
	if e.Concurrency < 1 {
		return fmt.Errorf("STACKPLAN_CONCURRENCY must be at least 1, got %d", e.Concurrency)
	}
	return nil
}

func (e *Env) Target() provision.Target {
	return provision.Target{Account: e.Account, Region: e.Region}
}
