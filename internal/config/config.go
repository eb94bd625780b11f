package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a gantry process. Values
// are populated from .gantry.yaml, GANTRY_* env vars, and CLI flags.
type Config struct {
	VaultRoot  string `mapstructure:"vault_root"`
	DebounceMS int    `mapstructure:"debounce_ms"`
	Watch      bool   `mapstructure:"watch"`
	Telemetry  string `mapstructure:"telemetry"`
	Verbose    bool   `mapstructure:"verbose"`
}

// Debounce returns the configured debounce window as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Load reads configuration from viper, applying built-in defaults for
// any values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("vault_root", ".")
	viper.SetDefault("debounce_ms", 100)
	viper.SetDefault("watch", true)
	viper.SetDefault("telemetry", "")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
