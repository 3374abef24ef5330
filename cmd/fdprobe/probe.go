//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/shared/id"
)

const (
	modeOK     = "ok"
	modeError  = "error"
	modeDetach = "detach"
	modeCrash  = "crash"
)

// Inherited descriptors land after stdin, stdout and stderr.
const (
	childDataFd = 3
	childCommFd = 4
)

func validate(opts options) error {
	switch opts.mode {
	case modeOK, modeDetach, modeCrash:
	case modeError:
		if opts.message == "" {
			return errors.New("--mode error needs a non-empty --error")
		}
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
	if opts.payload < 0 {
		return fmt.Errorf("negative payload %d", opts.payload)
	}
	if opts.timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", opts.timeout)
	}
	return nil
}

// result is what the parent observed.
type result struct {
	RunID    id.RunID
	Bytes    int64
	Observed string
	Err      error
}

// classify maps the reader's final error to a probe mode.
func classify(err error) string {
	var remote *descriptor.RemoteError
	switch {
	case err == nil:
		return modeOK
	case errors.As(err, &remote):
		return modeError
	case errors.Is(err, descriptor.ErrDetached):
		return modeDetach
	case errors.Is(err, descriptor.ErrRemoteDead):
		return modeCrash
	default:
		return "unknown"
	}
}

func runParent(ctx context.Context, opts options, cfg *config.Config, logger *logging.Logger) int {
	runID := id.NewRunID()
	log := logger.With(zap.Stringer("run_id", runID))

	metrics := monitoring.NewMetrics()
	tracker := descriptor.NewTracker()
	dopts := []descriptor.Option{
		descriptor.WithLogger(logger.Named("descriptor")),
		descriptor.WithRecorder(metrics),
		descriptor.WithTracker(tracker),
		descriptor.WithPollInterval(cfg.Probe.PollInterval),
	}

	var wg sync.WaitGroup
	srvCtx, stopServer := context.WithCancel(ctx)
	defer func() {
		stopServer()
		wg.Wait()
	}()
	if opts.metricsAddr != "" {
		srv := server.New(tracker, metrics, logger.Named("http"),
			server.WithCORS(cfg.Metrics.AllowOrigins),
			server.WithRateLimit(cfg.Metrics.RateLimit, cfg.Metrics.Burst),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(srvCtx, opts.metricsAddr); err != nil {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	res, err := probe(ctx, opts, dopts, log)
	if err != nil {
		log.Error("Probe failed", zap.Error(err))
		return 1
	}
	res.RunID = runID

	fmt.Printf("run=%s bytes=%d status=%s\n", res.RunID, res.Bytes, res.Observed)
	log.Info("Probe finished",
		zap.Int64("bytes", res.Bytes),
		zap.String("expected", opts.mode),
		zap.String("observed", res.Observed),
		zap.NamedError("remote", res.Err),
	)

	if opts.linger > 0 && opts.metricsAddr != "" {
		select {
		case <-time.After(opts.linger):
		case <-ctx.Done():
		}
	}

	if res.Observed != opts.mode {
		return 1
	}
	return 0
}

func probe(ctx context.Context, opts options, dopts []descriptor.Option, log *zap.Logger) (*result, error) {
	r, w, err := descriptor.CreateReliablePipe(dopts...)
	if err != nil {
		return nil, err
	}
	reader := descriptor.NewReader(r)
	defer reader.Close()

	dataFile, commFile, err := w.Handoff()
	if err != nil {
		w.Close()
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		dataFile.Close()
		commFile.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, exe,
		"--child",
		"--mode", opts.mode,
		"--error", opts.message,
		"--payload", strconv.Itoa(opts.payload),
		"--log-level", opts.logLevel,
	)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{dataFile, commFile}

	err = cmd.Start()
	// The child holds its own copies now.
	dataFile.Close()
	commFile.Close()
	if err != nil {
		return nil, fmt.Errorf("starting child: %w", err)
	}
	log.Debug("Child started", zap.Int("pid", cmd.Process.Pid))

	n, readErr := io.Copy(io.Discard, reader)
	if waitErr := cmd.Wait(); waitErr != nil {
		log.Debug("Child exited", zap.Error(waitErr))
	}

	return &result{
		Bytes:    n,
		Observed: classify(readErr),
		Err:      readErr,
	}, nil
}

func runChild(opts options, logger *zap.Logger) int {
	d, err := descriptor.AdoptReliable(childDataFd, childCommFd, descriptor.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to adopt inherited descriptors", zap.Error(err))
		return 1
	}

	w := descriptor.NewWriter(d)
	if _, err := w.Write(payload(opts.payload)); err != nil {
		logger.Error("Write failed", zap.Error(err))
		w.CloseWithError(err)
		return 1
	}

	switch opts.mode {
	case modeError:
		w.CloseWithError(errors.New(opts.message))
	case modeDetach:
		fd, err := d.Detach()
		if err != nil {
			logger.Error("Detach failed", zap.Error(err))
			return 1
		}
		os.NewFile(uintptr(fd), "detached").Close()
	case modeCrash:
		// Exit without closing so the parent sees the comm channel die.
		os.Exit(3)
	default:
		w.Close()
	}
	return 0
}

func payload(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	return buf
}
