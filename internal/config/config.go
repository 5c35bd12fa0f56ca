// Package config loads and saves the cmarkov configuration file.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Constraint kinds accepted by ModelConfig.Constraint.
const (
	ConstraintNone      = "none"
	ConstraintPattern   = "pattern"
	ConstraintLetters   = "letters"
	ConstraintSyllables = "syllables"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// DatabaseConfig holds the corpus database settings.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ModelConfig describes the corpus model to read and the constraints the
// constrained model is trained with.
type ModelConfig struct {
	Name       string   `json:"name" yaml:"name"`
	Order      int      `json:"order" yaml:"order"`
	Length     int      `json:"length" yaml:"length"` // 0 picks the tag count, else the most common sentence length
	Lowercase  bool     `json:"lowercase" yaml:"lowercase"`
	Constraint string   `json:"constraint" yaml:"constraint"` // none, pattern, letters or syllables
	Tags       []string `json:"tags" yaml:"tags"`
	FoldCase   bool     `json:"fold_case" yaml:"fold_case"`
	NoRepeat   bool     `json:"no_repeat" yaml:"no_repeat"`
	MaxRunes   int      `json:"max_runes" yaml:"max_runes"`
}

// GenerateConfig holds defaults for generation.
type GenerateConfig struct {
	Count int    `json:"count" yaml:"count"`
	Seed  uint64 `json:"seed" yaml:"seed"` // 0 seeds from the runtime
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr            string `json:"addr" yaml:"addr"`
	MaxGenerate     int    `json:"max_generate" yaml:"max_generate"`
	ShutdownTimeout int    `json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// RenderConfig holds the template settings.
type RenderConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Config is the top-level configuration.
type Config struct {
	Log      *LogConfig      `json:"log" yaml:"log"`
	Database *DatabaseConfig `json:"database" yaml:"database"`
	Model    *ModelConfig    `json:"model" yaml:"model"`
	Generate *GenerateConfig `json:"generate" yaml:"generate"`
	Server   *ServerConfig   `json:"server" yaml:"server"`
	Render   *RenderConfig   `json:"render" yaml:"render"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Log: &LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: &DatabaseConfig{
			Path: "./data/cmarkov.db?_journal_mode=WAL&_busy_timeout=5000",
		},
		Model: &ModelConfig{
			Name:       "default",
			Order:      1,
			Constraint: ConstraintNone,
		},
		Generate: &GenerateConfig{
			Count: 5,
		},
		Server: &ServerConfig{
			Addr:            ":7279",
			MaxGenerate:     100,
			ShutdownTimeout: 10,
		},
		Render: &RenderConfig{
			Dir: "./data/templates",
		},
	}
}

// isYAML reports whether path names a YAML file.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Load reads the configuration at path, as YAML for .yaml/.yml files and as
// JSON otherwise. Fields missing from the file keep their defaults. If the
// file does not exist it is created with the defaults, and a failure to write
// it is returned together with the usable default config.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = Save(path, cfg); err != nil {
				return cfg, fmt.Errorf("failed to write default config file: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, cfg)
	} else {
		err = json.Unmarshal(file, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults replaces sections a file set to null.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Log == nil {
		c.Log = d.Log
	}
	if c.Database == nil {
		c.Database = d.Database
	}
	if c.Model == nil {
		c.Model = d.Model
	}
	if c.Generate == nil {
		c.Generate = d.Generate
	}
	if c.Server == nil {
		c.Server = d.Server
	}
	if c.Render == nil {
		c.Render = d.Render
	}
}

// Save writes cfg to path atomically, in the format its extension selects.
func Save(path string, cfg *Config) error {
	data, err := marshal(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from CMARKOV_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CMARKOV_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CMARKOV_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CMARKOV_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("CMARKOV_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CMARKOV_TEMPLATE_DIR"); v != "" {
		c.Render.Dir = v
	}
	if v := os.Getenv("CMARKOV_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Generate.Seed = seed
		}
	}
}

// Validate checks the configuration for values the program cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log format %q must be \"text\" or \"json\"", f))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model name is empty"))
	}
	if c.Model.Order < 1 {
		errs = append(errs, fmt.Errorf("model order must be at least 1, got %d", c.Model.Order))
	}
	if c.Model.Length != 0 && c.Model.Length < 2 {
		errs = append(errs, fmt.Errorf("model length must be 0 or at least 2, got %d", c.Model.Length))
	}
	switch c.Model.Constraint {
	case "", ConstraintNone, ConstraintPattern, ConstraintLetters, ConstraintSyllables:
	default:
		errs = append(errs, fmt.Errorf("unknown constraint %q", c.Model.Constraint))
	}
	if n := len(c.Model.Tags); n > 0 && c.Model.Length > 0 && n != c.Model.Length {
		errs = append(errs, fmt.Errorf("got %d tags for model length %d", n, c.Model.Length))
	}
	if c.Model.MaxRunes < 0 {
		errs = append(errs, fmt.Errorf("max runes must not be negative, got %d", c.Model.MaxRunes))
	}
	if c.Generate.Count < 0 {
		errs = append(errs, fmt.Errorf("generate count must not be negative, got %d", c.Generate.Count))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is empty"))
	}
	if c.Server.MaxGenerate < 1 {
		errs = append(errs, fmt.Errorf("server max_generate must be at least 1, got %d", c.Server.MaxGenerate))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to its slog.Level. Unknown names yield
// slog.LevelInfo and an error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
