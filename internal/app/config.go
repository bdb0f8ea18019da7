package app

import "time"

// Config holds everything one App invocation needs.
type Config struct {
	// BuildFile is the definition to load. Empty means discover one
	// in the working directory.
	BuildFile string
	// Targets are the requested target names; empty builds the default.
	Targets []string

	DryRun  bool
	Verbose bool
	Watch   bool
	// Workers bounds concurrent target execution. 1 is the sequential
	// baseline.
	Workers int
	// DefaultTimeout bounds each command invocation for targets with
	// no timeout of their own. Zero disables the bound.
	DefaultTimeout time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates and normalizes a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	return &cfg, nil
}
