// Package config loads Ecosystem host-integration settings: event
// log ring capacity, default ttl, and log level. This is a
// host-integration concern, not part of the reactive core, which is
// why it lives in its own package, kept dependency-light and pushed
// out of the core's internal packages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables an Ecosystem's devtools/host integration
// may want to override.
type Config struct {
	EventLogCapacity int           `yaml:"eventLogCapacity" toml:"event_log_capacity"`
	DefaultTTL       time.Duration `yaml:"defaultTTL" toml:"default_ttl"`
	LogLevel         string        `yaml:"logLevel" toml:"log_level"`
}

// Default returns the struct defaults applied before any file or
// environment override.
func Default() Config {
	return Config{
		EventLogCapacity: 10000,
		DefaultTTL:       0,
		LogLevel:         "info",
	}
}

// Load reads path (selecting a YAML or TOML codec by extension) over
// Default(), then applies ATOMCTL_* environment variable overrides.
// A missing path is not an error: defaults (plus env overrides) are
// returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}

		if err := decode(path, b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	return applyEnv(cfg), nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch ext(path) {
	case "toml":
		return toml.Unmarshal(b, cfg)
	default:
		return yaml.Unmarshal(b, cfg)
	}
}

func ext(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return ""
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("ATOMCTL_EVENTLOG_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EventLogCapacity = n
		}
	}
	if v := os.Getenv("ATOMCTL_DEFAULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DefaultTTL = d
		}
	}
	if v := os.Getenv("ATOMCTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}
