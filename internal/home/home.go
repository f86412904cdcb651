// Package home manages the cookbook home directory layout.
//
// The home directory holds the configuration file and, unless configured
// otherwise, the catalog database.
//
// Layout:
//
//	<root>/
//	  config.yaml   or  config.json   (optional settings)
//	  catalog.db                       (default catalog database)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents a cookbook home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/cookbook
//   - macOS:   ~/Library/Application Support/cookbook
//   - Windows: %APPDATA%/cookbook
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "cookbook")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// ConfigPath returns the path of the configuration file. A config.yaml is
// preferred; config.json is used when only it exists. When neither exists
// the YAML path is returned.
func (d Dir) ConfigPath() string {
	yml := filepath.Join(d.root, "config.yaml")
	if _, err := os.Stat(yml); err == nil {
		return yml
	}
	js := filepath.Join(d.root, "config.json")
	if _, err := os.Stat(js); err == nil {
		return js
	}
	return yml
}

// DatabasePath returns the default catalog database path.
func (d Dir) DatabasePath() string {
	return filepath.Join(d.root, "catalog.db")
}

// EnsureExists creates the home directory (and parents) if it doesn't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}
