// Package config provides 12-factor configuration for fdchannel binaries.
//
// Configuration is loaded from environment variables with sensible defaults;
// command-line flags override them.
//
// Configuration Sections:
//   - Logging: log level and output format
//   - Metrics: optional HTTP address for /metrics and /descriptors
//   - Probe: fdprobe payload size, listener poll interval, child timeout
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("polling every %s\n", cfg.Probe.PollInterval)
package config
