// Package config holds all parity configuration. Tunable thresholds
// (tolerance, case caps, timeouts) live here as explicit values loaded
// once at startup; engine packages receive them as plain parameters and
// never read hidden module-level state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full parity configuration.
type Config struct {
	// Epsilon is the float comparison tolerance, applied both as an
	// absolute bound and relative to the larger magnitude.
	Epsilon float64 `yaml:"epsilon"`

	// MaxCases caps how many test cases are synthesized per function.
	MaxCases int `yaml:"max_cases"`

	// CallTimeout bounds a single target invocation ("2s" form).
	CallTimeout string `yaml:"call_timeout"`

	// ArtifactsDir is where baseline snapshots are written.
	ArtifactsDir string `yaml:"artifacts_dir"`

	// DatabasePath is the run-history SQLite database.
	DatabasePath string `yaml:"database_path"`

	// Watch configures the re-validation loop.
	Watch WatchConfig `yaml:"watch"`

	// Logging configures process logging.
	Logging LoggingConfig `yaml:"logging"`

	// Vocabulary extends the built-in name-heuristic table for input
	// synthesis without recompiling.
	Vocabulary []VocabRule `yaml:"vocabulary,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long the candidate directory must stay quiet
	// before a re-validation fires ("500ms" form).
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// VocabRule maps parameter-name words to a named synthesis value set.
// Matching is by whole word after splitting camelCase and snake_case
// names, so "durationSeconds" matches a "seconds" rule but "width"
// never matches an "id" rule.
type VocabRule struct {
	Contains []string `yaml:"contains"`
	Set      string   `yaml:"set"` // floats, ints, strings, bools, ratios
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Epsilon:      1e-9,
		MaxCases:     4,
		CallTimeout:  "2s",
		ArtifactsDir: filepath.Join(".parity", "baselines"),
		DatabasePath: filepath.Join(".parity", "runs.db"),
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist. Environment variables override the
// file on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PARITY_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Epsilon = f
		}
	}
	if v := os.Getenv("PARITY_MAX_CASES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxCases = n
		}
	}
	if v := os.Getenv("PARITY_CALL_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.CallTimeout = v
		}
	}
	if v := os.Getenv("PARITY_ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("PARITY_DB"); v != "" {
		c.DatabasePath = v
	}
}

// GetCallTimeout returns the call timeout as a duration.
func (c *Config) GetCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.CallTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Validate checks the configuration for values the engine cannot work
// with.
func (c *Config) Validate() error {
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	if c.MaxCases <= 0 {
		return fmt.Errorf("max_cases must be positive, got %d", c.MaxCases)
	}
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout %q: %w", c.CallTimeout, err)
	}
	for i, rule := range c.Vocabulary {
		if len(rule.Contains) == 0 {
			return fmt.Errorf("vocabulary rule %d has no match words", i)
		}
		switch rule.Set {
		case "floats", "ints", "strings", "bools", "ratios":
		default:
			return fmt.Errorf("vocabulary rule %d names unknown set %q", i, rule.Set)
		}
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".parity", "config.yaml")
	}
	return filepath.Join(cwd, ".parity", "config.yaml")
}
