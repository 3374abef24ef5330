//go:build linux

package descriptor

import (
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
)

// Recorder receives descriptor and status events. monitoring.Metrics
// satisfies it.
type Recorder interface {
	comm.Observer
	DescriptorOpened(kind string)
	DescriptorClosed(kind string)
	DescriptorLeaked(kind string)
}

type nopRecorder struct{}

func (nopRecorder) StatusWritten(status.Code) {}
func (nopRecorder) StatusRead(status.Code)    {}
func (nopRecorder) StatusWriteFailed()        {}
func (nopRecorder) DescriptorOpened(string)   {}
func (nopRecorder) DescriptorClosed(string)   {}
func (nopRecorder) DescriptorLeaked(string)   {}

type options struct {
	logger       *zap.Logger
	recorder     Recorder
	tracker      *Tracker
	pollInterval time.Duration
}

// Option configures descriptors at construction.
type Option func(*options)

// WithLogger sets the logger for best-effort failures and warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder routes open/close and status events to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTracker registers descriptors in t while they are open.
func WithTracker(t *Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

// WithPollInterval sets how often listener goroutines re-check their context.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		recorder:     nopRecorder{},
		pollInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) commOptions() []comm.Option {
	return []comm.Option{
		comm.WithLogger(o.logger),
		comm.WithObserver(o.recorder),
	}
}
