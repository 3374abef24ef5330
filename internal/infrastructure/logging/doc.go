// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Library packages (descriptor, comm) never build their own logger; they
// take a *zap.Logger through options and default to a no-op logger. Binaries
// build one here and pass logger.Logger down.
//
// Example Usage:
//
//	logger, err := logging.ForProcess(cfg.Logging.Level, cfg.Logging.Development)
//	r, w, err := descriptor.CreateReliablePipe(descriptor.WithLogger(logger.Named("pipe")))
package logging
