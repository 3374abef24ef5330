//go:build linux

package descriptor

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
)

// OnClose is called once when the holder of a watched descriptor closes it.
// err is nil for a clean close, otherwise the mapped remote status.
type OnClose func(err error)

// FromFdWithListener takes ownership of fd and attaches a status channel
// whose far end is watched in the background. listener runs once when the
// descriptor (or a copy sent to another process) is closed, detached or
// leaked. Cancelling ctx stops the watch without calling listener.
func FromFdWithListener(ctx context.Context, fd int, listener OnClose, opts ...Option) (*Descriptor, error) {
	if listener == nil {
		return nil, ErrNilListener
	}
	if fd < 0 {
		return nil, ErrInvalidHandle
	}
	d, err := watchFd(ctx, fd, KindAdopted, listener, buildOptions(opts))
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

// newCommPair is replaced in tests to simulate socketpair failure.
var newCommPair = comm.NewPair

func watchFd(ctx context.Context, fd int, kind string, listener OnClose, o options) (*Descriptor, error) {
	local, watcher, err := newCommPair(o.commOptions()...)
	if err != nil {
		return nil, err
	}
	d := newDescriptor(fd, local, kind, o)
	go watch(ctx, watcher, listener, o)
	return d, nil
}

func watch(ctx context.Context, ch *comm.Channel, listener OnClose, o options) {
	defer ch.Close()

	st, err := ch.Await(ctx, o.pollInterval)
	if err != nil {
		o.logger.Debug("Stopped watching descriptor", zap.Error(err))
		return
	}
	listener(st.Err())
}
