// Package config loads and merges covfuzz's configuration: built-in
// defaults, an optional YAML file (--config), and CLI flags, in that
// increasing order of precedence (SPEC_FULL.md §10).
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables the `fuzz` subcommand accepts,
// mirrored from SPEC_FULL.md §6's flag surface.
type Config struct {
	SeedDir  string        `yaml:"seed_dir"`
	CrashDir string        `yaml:"crash_dir"`
	State    StateConfig   `yaml:"state"`
	Engine   EngineConfig  `yaml:"engine"`
	Target   TargetConfig  `yaml:"target"`
	Output   OutputConfig  `yaml:"output"`
	Logging  LoggingConfig `yaml:"logging"`
}

// StateConfig controls session-state persistence (§4.7).
type StateConfig struct {
	Path               string        `yaml:"path"`
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
	LoadCrashesAsSeeds bool          `yaml:"load_crashes_as_seeds"`
}

// EngineConfig controls the orchestrator/worker run parameters.
type EngineConfig struct {
	NumWorkers    int           `yaml:"num_workers"`
	MaxTime       time.Duration `yaml:"max_time"`
	MaxCrashes    int           `yaml:"max_crashes"`
	StatFrequency time.Duration `yaml:"stat_frequency"`
	CloseStdout   bool          `yaml:"close_stdout"`
	CloseStderr   bool          `yaml:"close_stderr"`
	StartMethod   string        `yaml:"start_method"`
	WatchSeedDir  bool          `yaml:"watch_seed_dir"`
}

// TargetConfig selects and configures the fuzz target.
type TargetConfig struct {
	Name        string `yaml:"name"`
	PluginPath  string `yaml:"plugin_path"`
	DictFile    string `yaml:"dict_file"`
	DictBuiltin bool   `yaml:"dict_builtin"`
}

// OutputConfig controls the optional dashboards and metrics exporter.
type OutputConfig struct {
	WebAddr     string `yaml:"web_addr"`
	TUI         bool   `yaml:"tui"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoggingConfig controls the ambient zerolog setup (§10).
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
}

// Default returns covfuzz's built-in configuration, used as the base
// layer beneath any --config file and any explicit CLI flag.
func Default() *Config {
	return &Config{
		CrashDir: "./crashes",
		State: StateConfig{
			CheckpointInterval: 10 * time.Second,
		},
		Engine: EngineConfig{
			NumWorkers:    runtime.NumCPU(),
			StatFrequency: 3 * time.Second,
			StartMethod:   "spawn",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// LoadFile reads a YAML config file and merges it onto base, returning
// a new Config. Fields absent from the file keep base's value, since
// yaml.Unmarshal only overwrites fields present in the document.
func LoadFile(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	merged := *base
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &merged, nil
}

// Validate checks invariants that must hold before the orchestrator
// starts, per the fail-fast user-input error policy in SPEC_FULL.md §7.
func (c *Config) Validate() error {
	if c.SeedDir == "" {
		return fmt.Errorf("seed directory is required")
	}
	if info, err := os.Stat(c.SeedDir); err != nil || !info.IsDir() {
		return fmt.Errorf("seed directory %s is not a readable directory", c.SeedDir)
	}
	if c.Engine.NumWorkers <= 0 {
		return fmt.Errorf("num-workers must be positive")
	}
	switch c.Engine.StartMethod {
	case "spawn", "forkserver":
	case "fork":
		return fmt.Errorf("start-method \"fork\" is forbidden")
	default:
		return fmt.Errorf("unknown start-method %q", c.Engine.StartMethod)
	}
	return nil
}
