package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"VaultRoot", cfg.VaultRoot, "."},
		{"DebounceMS", cfg.DebounceMS, 100},
		{"Watch", cfg.Watch, true},
		{"Telemetry", cfg.Telemetry, ""},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetViper()

	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "vault_root",
			envKey: "GANTRY_VAULT_ROOT",
			envVal: "/srv/vault",
			field:  func(c Config) any { return c.VaultRoot },
			want:   "/srv/vault",
		},
		{
			name:   "debounce_ms",
			envKey: "GANTRY_DEBOUNCE_MS",
			envVal: "250",
			field:  func(c Config) any { return c.DebounceMS },
			want:   250,
		},
		{
			name:   "watch",
			envKey: "GANTRY_WATCH",
			envVal: "false",
			field:  func(c Config) any { return c.Watch },
			want:   false,
		},
		{
			name:   "telemetry",
			envKey: "GANTRY_TELEMETRY",
			envVal: "/tmp/gantry-events.jsonl",
			field:  func(c Config) any { return c.Telemetry },
			want:   "/tmp/gantry-events.jsonl",
		},
		{
			name:   "verbose",
			envKey: "GANTRY_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so GANTRY_* env vars map to config keys.
			viper.SetEnvPrefix("GANTRY")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConfig_Debounce(t *testing.T) {
	resetViper()

	cfg := Config{DebounceMS: 250}
	if got, want := cfg.Debounce(), 250*time.Millisecond; got != want {
		t.Errorf("Debounce() = %v, want %v", got, want)
	}
}
