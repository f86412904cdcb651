package config

import (
	"strings"
	"testing"

	"cookbook/internal/home"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults(home.New("/data"))
	if cfg.Database != "/data/catalog.db" {
		t.Errorf("database: got %s", cfg.Database)
	}
	if cfg.Parallel < 1 {
		t.Errorf("parallel: got %d", cfg.Parallel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestMergePrecedence(t *testing.T) {
	defaults := Config{Database: "/home/catalog.db", Parallel: 8, LogLevel: "info", Output: OutputTable}
	file := Config{Database: "/file.db", Parallel: 2}
	env := FromEnv(func(k string) string {
		if k == EnvDatabase {
			return "/env.db"
		}
		return ""
	})
	flags := Config{Output: OutputJSON}

	got := defaults.Merge(file).Merge(env).Merge(flags)
	want := Config{Database: "/env.db", Parallel: 2, LogLevel: "info", Output: OutputJSON}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	got = defaults.Merge(file).Merge(env).Merge(Config{Database: "/flag.db"})
	if got.Database != "/flag.db" {
		t.Errorf("flag should win: got %s", got.Database)
	}
}

func TestFromEnvUnset(t *testing.T) {
	if got := FromEnv(func(string) string { return "" }); got != (Config{}) {
		t.Errorf("expected empty layer, got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Database: "/a.db", Parallel: 1, LogLevel: "warn", Output: OutputJSON}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty database", func(c *Config) { c.Database = "" }, "database"},
		{"zero parallel", func(c *Config) { c.Parallel = 0 }, "parallel"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "logLevel"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	err := Config{}.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"database", "parallel", "output"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("missing %s in %v", field, err)
		}
	}
}
