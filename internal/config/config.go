// Package config holds the cookbook command settings.
//
// Settings come from four layers, later ones winning field by field:
// built-in defaults, the home directory's config file, the environment,
// and command-line flags. A layer leaves a field alone by leaving it zero.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"cookbook/internal/home"
	"cookbook/internal/logging"
)

// EnvDatabase names the environment variable that overrides the catalog
// database path.
const EnvDatabase = "COOKBOOK_DB"

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Config is one settings layer.
type Config struct {
	// Database is the path of the catalog SQLite file.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	// Parallel bounds concurrent file opens.
	Parallel int `json:"parallel,omitempty" yaml:"parallel,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	// Output is the default output format.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Defaults returns the built-in settings for a home directory.
func Defaults(h home.Dir) Config {
	return Config{
		Database: h.DatabasePath(),
		Parallel: runtime.GOMAXPROCS(0),
		LogLevel: "info",
		Output:   OutputTable,
	}
}

// FromEnv returns the layer set by the environment.
func FromEnv(getenv func(string) string) Config {
	return Config{Database: getenv(EnvDatabase)}
}

// Merge returns c with every non-zero field of over applied.
func (c Config) Merge(over Config) Config {
	if over.Database != "" {
		c.Database = over.Database
	}
	if over.Parallel != 0 {
		c.Parallel = over.Parallel
	}
	if over.LogLevel != "" {
		c.LogLevel = over.LogLevel
	}
	if over.Output != "" {
		c.Output = over.Output
	}
	return c
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database: path is empty"))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel: must be at least 1, got %d", c.Parallel))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("logLevel: %w", err))
	}
	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q (use %s or %s)", c.Output, OutputTable, OutputJSON))
	}
	return errors.Join(errs...)
}
