//go:build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/logging"
)

type options struct {
	child       bool
	mode        string
	message     string
	payload     int
	metricsAddr string
	linger      time.Duration
	dev         bool
	logLevel    string
	timeout     time.Duration
}

func main() {
	cfg := config.LoadOrDefault()

	var opts options
	flags := pflag.NewFlagSet("fdprobe", pflag.ExitOnError)
	flags.BoolVar(&opts.child, "child", false, "run as the child end (internal)")
	flags.StringVar(&opts.mode, "mode", modeOK, "how the child closes: ok, error, detach, crash")
	flags.StringVar(&opts.message, "error", "probe failure", "message sent with --mode error")
	flags.IntVar(&opts.payload, "payload", cfg.Probe.PayloadBytes, "bytes the child writes before closing")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", cfg.Metrics.Address, "serve /metrics and /descriptors on this address")
	flags.DurationVar(&opts.linger, "linger", 0, "keep the metrics server up this long after the probe")
	flags.DurationVar(&opts.timeout, "timeout", cfg.Probe.ChildTimeout, "kill the child after this long")
	flags.BoolVar(&opts.dev, "dev", cfg.Logging.Development, "development logging")
	flags.StringVar(&opts.logLevel, "log-level", cfg.Logging.Level, "log level")
	_ = flags.Parse(os.Args[1:])

	level := opts.logLevel
	if opts.dev && !flags.Changed("log-level") {
		level = ""
	}
	logger, err := logging.ForProcess(level, opts.dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fdprobe: %v\n", err)
		os.Exit(2)
	}

	if err := validate(opts); err != nil {
		logger.Error("Invalid flags", zap.Error(err))
		logger.Close()
		os.Exit(2)
	}

	var code int
	if opts.child {
		code = runChild(opts, logger.Named("child"))
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		code = runParent(ctx, opts, cfg, logger)
		stop()
	}
	logger.Close()
	os.Exit(code)
}
