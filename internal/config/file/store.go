// Package file persists cookbook settings in the home directory.
//
// Settings are stored as a versioned envelope, in YAML or JSON depending on
// the file extension:
//
//	version: 1
//	config:
//	  database: /data/catalog.db
//	  parallel: 8
//
//	{"version": 1, "config": {"database": "/data/catalog.db", "parallel": 8}}
//
// Save writes the whole file atomically via a temp file and rename.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cookbook/internal/config"
)

const currentVersion = 1

// envelope is the versioned on-disk format.
type envelope struct {
	Version int            `json:"version" yaml:"version"`
	Config  *config.Config `json:"config" yaml:"config"`
}

type codec struct {
	marshal   func(envelope) ([]byte, error)
	unmarshal func([]byte, *envelope) error
}

var (
	yamlCodec = codec{
		marshal: func(env envelope) ([]byte, error) { return yaml.Marshal(env) },
		unmarshal: func(data []byte, env *envelope) error {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			return dec.Decode(env)
		},
	}
	jsonCodec = codec{
		marshal: func(env envelope) ([]byte, error) { return json.MarshalIndent(env, "", "  ") },
		unmarshal: func(data []byte, env *envelope) error {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			return dec.Decode(env)
		},
	}
)

// Store reads and writes one settings file.
type Store struct {
	path  string
	codec codec
}

// NewStore returns a store for path. The extension selects the format:
// .yaml or .yml for YAML, .json for JSON.
func NewStore(path string) (*Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &Store{path: path, codec: yamlCodec}, nil
	case ".json":
		return &Store{path: path, codec: jsonCodec}, nil
	}
	return nil, fmt.Errorf("config file %s: unsupported extension (use .yaml or .json)", path)
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the settings from disk. Returns nil if the file does not exist
// or holds no config section.
func (s *Store) Load(ctx context.Context) (*config.Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var env envelope
	if err := s.codec.unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", s.path, err)
	}
	if env.Version == 0 {
		return nil, fmt.Errorf("config file %s has no version; add \"version: %d\"", s.path, currentVersion)
	}
	if env.Version > currentVersion {
		return nil, fmt.Errorf("config file version %d is newer than supported version %d", env.Version, currentVersion)
	}
	return env.Config, nil
}

// Save atomically writes cfg to disk with round-trip validation.
func (s *Store) Save(ctx context.Context, cfg config.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := s.codec.marshal(envelope{Version: currentVersion, Config: &cfg})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil { //nolint:gosec // G306: settings are not secret
		return fmt.Errorf("write temp file: %w", err)
	}

	// Round-trip validation: re-read and verify it parses.
	check, err := os.ReadFile(tmpPath) //nolint:gosec // G304: path derives from the home directory
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify envelope
	if err := s.codec.unmarshal(check, &verify); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config file: %w", err)
	}
	return nil
}
