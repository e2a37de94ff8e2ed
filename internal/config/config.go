// Package config handles configuration loading for edict. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the engine.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Router   RouterConfig   `mapstructure:"router"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	// Preferences holds per-directive preference overrides merged into
	// the execution context before a run. The engine never writes these.
	Preferences map[string]map[string]string `mapstructure:"preferences"`
}

// EngineConfig holds interpreter settings.
type EngineConfig struct {
	// MaxCallDepth bounds the directive call stack.
	MaxCallDepth int `mapstructure:"max_call_depth"`
	// MaxRetries bounds the on-failure retry loop.
	MaxRetries int `mapstructure:"max_retries"`
}

// RouterConfig holds intent routing settings.
type RouterConfig struct {
	// Floor is the minimum score for a directive to appear as a
	// routing candidate.
	Floor float64 `mapstructure:"floor"`
}

// ResolverConfig holds conflict resolution policy. Weights are injected
// here rather than hardcoded in the resolver.
type ResolverConfig struct {
	// Weights maps quality signals to their share of the preference
	// score, e.g. purity: 0.6, test_coverage: 0.4.
	Weights map[string]float64 `mapstructure:"weights"`
	// Threshold is the minimum score difference for auto-resolution.
	// A difference exactly at the threshold escalates.
	Threshold float64 `mapstructure:"threshold"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// CatalogDir is the directory of directive definition files.
	CatalogDir string `mapstructure:"catalog_dir"`
	// StateDB is the SQLite state database path. Empty means the
	// project-local default.
	StateDB string `mapstructure:"state_db"`
}

// LoggingConfig holds debug logging settings.
type LoggingConfig struct {
	// DebugLog is the debug log file path. Empty disables debug logging.
	DebugLog string `mapstructure:"debug_log"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxCallDepth: 5,
			MaxRetries:   2,
		},
		Router: RouterConfig{
			Floor: 0.1,
		},
		Resolver: ResolverConfig{
			Weights: map[string]float64{
				"purity":        0.6,
				"test_coverage": 0.4,
			},
			Threshold: 0.3,
		},
		Paths: PathsConfig{
			CatalogDir: "directives",
		},
	}
}

// Validate clamps out-of-range values back to their defaults.
func (c *Config) Validate() error {
	if c.Engine.MaxCallDepth < 1 {
		c.Engine.MaxCallDepth = 5
	}
	if c.Engine.MaxRetries < 0 {
		c.Engine.MaxRetries = 2
	}
	if c.Router.Floor < 0 || c.Router.Floor > 1 {
		c.Router.Floor = 0.1
	}
	if c.Resolver.Threshold < 0 || c.Resolver.Threshold > 1 {
		c.Resolver.Threshold = 0.3
	}
	if len(c.Resolver.Weights) == 0 {
		c.Resolver.Weights = Default().Resolver.Weights
	}
	for signal, w := range c.Resolver.Weights {
		if w < 0 {
			return fmt.Errorf("resolver weight for %q is negative", signal)
		}
	}
	return nil
}

// Load loads configuration with the following precedence (highest first):
// environment variables (EDICT_*), project config (.edict.yaml in the
// current directory), user config (~/.config/edict/config.yaml), built-in
// defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("EDICT")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers the built-in defaults with viper.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("engine.max_call_depth", d.Engine.MaxCallDepth)
	v.SetDefault("engine.max_retries", d.Engine.MaxRetries)
	v.SetDefault("router.floor", d.Router.Floor)
	v.SetDefault("resolver.weights", d.Resolver.Weights)
	v.SetDefault("resolver.threshold", d.Resolver.Threshold)
	v.SetDefault("paths.catalog_dir", d.Paths.CatalogDir)
	v.SetDefault("paths.state_db", d.Paths.StateDB)
	v.SetDefault("logging.debug_log", d.Logging.DebugLog)
}

// userConfigDir returns the XDG config directory for edict.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "edict")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "edict")
}

// findProjectConfig looks for .edict.yaml in the current directory and its
// parents.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".edict.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
