package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all fdchannel configuration.
type Config struct {
	Logging LogConfig
	Metrics MetricsConfig
	Probe   ProbeConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"FDCHANNEL_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"FDCHANNEL_LOG_DEV" default:"false"`
}

// MetricsConfig holds the HTTP metrics endpoint configuration.
// An empty Address disables the endpoint.
type MetricsConfig struct {
	Address      string   `envconfig:"FDCHANNEL_METRICS_ADDR" default:""`
	AllowOrigins []string `envconfig:"FDCHANNEL_METRICS_ORIGINS"`
	RateLimit    int      `envconfig:"FDCHANNEL_METRICS_RPS" default:"50"`
	Burst        int      `envconfig:"FDCHANNEL_METRICS_BURST" default:"100"`
}

// ProbeConfig holds fdprobe defaults.
type ProbeConfig struct {
	PayloadBytes int           `envconfig:"FDCHANNEL_PROBE_PAYLOAD" default:"65536"`
	PollInterval time.Duration `envconfig:"FDCHANNEL_POLL_INTERVAL" default:"100ms"`
	ChildTimeout time.Duration `envconfig:"FDCHANNEL_CHILD_TIMEOUT" default:"10s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			RateLimit: 50,
			Burst:     100,
		},
		Probe: ProbeConfig{
			PayloadBytes: 64 * 1024,
			PollInterval: 100 * time.Millisecond,
			ChildTimeout: 10 * time.Second,
		},
	}
}

// Validate rejects values the probe cannot run with.
func (c *Config) Validate() error {
	if c.Probe.PayloadBytes < 0 {
		return fmt.Errorf("invalid config: FDCHANNEL_PROBE_PAYLOAD must not be negative, got %d", c.Probe.PayloadBytes)
	}
	if c.Probe.PollInterval <= 0 {
		return fmt.Errorf("invalid config: FDCHANNEL_POLL_INTERVAL must be positive, got %s", c.Probe.PollInterval)
	}
	if c.Probe.ChildTimeout <= 0 {
		return fmt.Errorf("invalid config: FDCHANNEL_CHILD_TIMEOUT must be positive, got %s", c.Probe.ChildTimeout)
	}
	return nil
}
