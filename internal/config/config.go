// Package config loads and validates progressd configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Tracker TrackerConfig `mapstructure:"tracker"`
	Display DisplayConfig `mapstructure:"display"`
	Hub     HubConfig     `mapstructure:"hub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// TrackerConfig governs the done-detection tolerance applied at startup.
type TrackerConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
}

// DisplayConfig configures the console monitor.
type DisplayConfig struct {
	Width          int `mapstructure:"width"`
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// HubConfig sizes the event hub's buffering and batching.
type HubConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROGRESSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("tracker.tolerance", 1e-12)
	v.SetDefault("display.width", 30)
	v.SetDefault("display.poll_interval_ms", 50)
	v.SetDefault("hub.buffer_size", 1024)
	v.SetDefault("hub.max_batch_events", 256)
	v.SetDefault("hub.max_batch_wait_ms", 250)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Tracker.Tolerance <= 0 || c.Tracker.Tolerance > 0.1 {
		return fmt.Errorf("tracker.tolerance must be in (0, 0.1]")
	}
	if c.Display.Width <= 2 {
		return fmt.Errorf("display.width must be > 2")
	}
	if c.Display.PollIntervalMs <= 0 {
		return fmt.Errorf("display.poll_interval_ms must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// PollInterval converts the display poll interval into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Display.PollIntervalMs) * time.Millisecond
}

// MaxBatchWait converts the hub batch wait into a duration.
func (c Config) MaxBatchWait() time.Duration {
	return time.Duration(c.Hub.MaxBatchWaitMs) * time.Millisecond
}
