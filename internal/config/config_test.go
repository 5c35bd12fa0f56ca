package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_CreatesDefault(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.Server.Addr != Default().Server.Addr {
				t.Errorf("expected default server address, got %q", cfg.Server.Addr)
			}
			if _, err = os.Stat(path); err != nil {
				t.Fatalf("expected default config file to be written: %v", err)
			}

			again, err := Load(path)
			if err != nil {
				t.Fatalf("Load() of written default failed: %v", err)
			}
			if again.Model.Name != cfg.Model.Name || again.Log.Level != cfg.Log.Level {
				t.Errorf("round trip changed config: %+v vs %+v", again.Model, cfg.Model)
			}
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json",
			file:    "config.json",
			content: `{"model": {"name": "poems", "order": 2, "tags": ["*", "fish"]}, "server": null}`,
		},
		{
			name: "yaml",
			file: "config.yml",
			content: `
model:
  name: poems
  order: 2
  tags: ["*", "fish"]
`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if cfg.Model.Name != "poems" || cfg.Model.Order != 2 {
				t.Errorf("unexpected model config: %+v", cfg.Model)
			}
			if len(cfg.Model.Tags) != 2 || cfg.Model.Tags[1] != "fish" {
				t.Errorf("unexpected tags: %v", cfg.Model.Tags)
			}
			if cfg.Server == nil || cfg.Server.Addr != Default().Server.Addr {
				t.Errorf("expected default server config, got %+v", cfg.Server)
			}
			if cfg.Render == nil || cfg.Render.Dir != Default().Render.Dir {
				t.Errorf("expected default render config, got %+v", cfg.Render)
			}
			if cfg.Generate.Count != Default().Generate.Count {
				t.Errorf("expected default generate count, got %d", cfg.Generate.Count)
			}
			if err = cfg.Validate(); err != nil {
				t.Errorf("Validate() failed: %v", err)
			}
		})
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed config")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Model.Constraint = ConstraintSyllables
	cfg.Model.Tags = []string{"2", "*", "1"}
	cfg.Generate.Seed = 42

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "constraint: syllables") {
		t.Errorf("expected YAML output, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Generate.Seed != 42 || loaded.Model.Constraint != ConstraintSyllables {
		t.Errorf("saved values not loaded back: %+v %+v", loaded.Generate, loaded.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CMARKOV_LOG_LEVEL", "debug")
	t.Setenv("CMARKOV_DB_PATH", "/tmp/x.db")
	t.Setenv("CMARKOV_MODEL", "env_model")
	t.Setenv("CMARKOV_SERVER_ADDR", ":1")
	t.Setenv("CMARKOV_SEED", "not a number")
	t.Setenv("CMARKOV_TEMPLATE_DIR", "/srv/templates")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Log.Level != "debug" || cfg.Database.Path != "/tmp/x.db" || cfg.Model.Name != "env_model" || cfg.Server.Addr != ":1" {
		t.Errorf("environment not applied: %+v %+v %+v %+v", cfg.Log, cfg.Database, cfg.Model, cfg.Server)
	}
	if cfg.Render.Dir != "/srv/templates" {
		t.Errorf("expected template dir from environment, got %q", cfg.Render.Dir)
	}
	if cfg.Generate.Seed != 0 {
		t.Errorf("expected invalid seed to be ignored, got %d", cfg.Generate.Seed)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "unknown log level"},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
		{name: "order", mutate: func(c *Config) { c.Model.Order = 0 }, wantErr: "order"},
		{name: "length", mutate: func(c *Config) { c.Model.Length = 1 }, wantErr: "length"},
		{name: "constraint", mutate: func(c *Config) { c.Model.Constraint = "rhyme" }, wantErr: "unknown constraint"},
		{name: "tags", mutate: func(c *Config) { c.Model.Length = 3; c.Model.Tags = []string{"*"} }, wantErr: "tags"},
		{name: "count", mutate: func(c *Config) { c.Generate.Count = -1 }, wantErr: "count"},
		{name: "max generate", mutate: func(c *Config) { c.Server.MaxGenerate = 0 }, wantErr: "max_generate"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if got != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}
