//go:build linux

package comm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
)

// ErrClosed is returned by operations on a closed channel.
var ErrClosed = errors.New("comm: channel closed")

// Observer receives channel events, typically to feed metrics.
type Observer interface {
	StatusWritten(code status.Code)
	StatusRead(code status.Code)
	StatusWriteFailed()
}

type nopObserver struct{}

func (nopObserver) StatusWritten(status.Code) {}
func (nopObserver) StatusRead(status.Code)    {}
func (nopObserver) StatusWriteFailed()        {}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(observer Observer) Option {
	return func(c *Channel) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// Channel is one end of a status socket pair. It is owned by a single
// descriptor and is not safe for concurrent use.
type Channel struct {
	fd       int
	closed   bool
	buf      []byte
	logger   *zap.Logger
	observer Observer
}

func newChannel(fd int, opts []Option) *Channel {
	c := &Channel{
		fd:       fd,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewPair creates a connected, non-blocking pair of status channels.
func NewPair(opts ...Option) (*Channel, *Channel, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("creating status socketpair: %w", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fds[0])
			unix.Close(fds[1])
			return nil, nil, fmt.Errorf("setting status channel non-blocking: %w", err)
		}
	}
	return newChannel(fds[0], opts), newChannel(fds[1], opts), nil
}

// FromFd adopts fd as a status channel and switches it to non-blocking mode.
// On success the channel owns fd.
func FromFd(fd int, opts ...Option) (*Channel, error) {
	if fd < 0 {
		return nil, fmt.Errorf("comm: invalid descriptor %d", fd)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("setting status channel non-blocking: %w", err)
	}
	return newChannel(fd, opts), nil
}

// Fd returns the underlying socket, or -1 once closed.
func (c *Channel) Fd() int {
	if c.closed {
		return -1
	}
	return c.fd
}

// Closed reports whether Close has run.
func (c *Channel) Closed() bool {
	return c.closed
}

func (c *Channel) buffer() []byte {
	if c.buf == nil {
		c.buf = make([]byte, status.MaxFrameSize)
	}
	return c.buf
}

// WriteStatus reports code and msg to the peer with a single write.
//
// The peer's status is read first. When the peer has already reported (or is
// gone), nothing is written and that remote status is returned; otherwise
// the result is nil. Silence and closed channels write nothing. Write
// failures are logged and swallowed.
func (c *Channel) WriteStatus(code status.Code, msg string) *status.Status {
	if c.closed || code == status.Silence {
		return nil
	}

	if remote := c.ReadStatus(); remote != nil {
		return remote
	}

	buf := c.buffer()
	n := status.Encode(buf, code, msg)
	if err := c.writeFrame(buf[:n]); err != nil {
		c.observer.StatusWriteFailed()
		c.logger.Warn("Failed to report status",
			zap.Stringer("status", code),
			zap.Error(err),
		)
		return nil
	}
	c.observer.StatusWritten(code)
	return nil
}

func (c *Channel) writeFrame(frame []byte) error {
	for {
		n, err := unix.Write(c.fd, frame)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n != len(frame) {
			return fmt.Errorf("short status write: %d of %d bytes", n, len(frame))
		}
		return nil
	}
}

// ReadStatus performs one non-blocking receive.
//
// It returns nil when the peer is alive but has not reported yet. A zero
// length read means the peer end is gone and yields Dead; so does any other
// receive or decode failure, after logging.
func (c *Channel) ReadStatus() *status.Status {
	if c.closed {
		return nil
	}

	buf := c.buffer()
	var (
		n   int
		err error
	)
	for {
		n, err = unix.Read(c.fd, buf)
		if err != unix.EINTR {
			break
		}
	}

	switch {
	case err == unix.EAGAIN:
		return nil
	case err != nil:
		c.logger.Debug("Failed to read status; assuming dead", zap.Error(err))
		return c.resolved(status.New(status.Dead))
	case n == 0:
		return c.resolved(status.New(status.Dead))
	}

	st, err := status.Decode(buf[:n])
	if err != nil {
		c.logger.Debug("Malformed status frame; assuming dead",
			zap.Int("bytes", n),
			zap.Error(err),
		)
		return c.resolved(status.New(status.Dead))
	}
	return c.resolved(st)
}

func (c *Channel) resolved(st *status.Status) *status.Status {
	c.observer.StatusRead(st.Code)
	return st
}

// Await blocks until the peer reports a status or hangs up, polling every
// interval so that ctx cancellation is noticed. Hangup and poll errors
// resolve to Dead.
func (c *Channel) Await(ctx context.Context, interval time.Duration) (*status.Status, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	timeout := int(interval / time.Millisecond)
	if timeout == 0 {
		timeout = 1
	}

	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fds[0].Revents = 0
		n, err := unix.Poll(fds, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			c.logger.Debug("Polling status channel failed; assuming dead", zap.Error(err))
			return c.resolved(status.New(status.Dead)), nil
		}
		if n == 0 {
			continue
		}

		revents := fds[0].Revents
		if revents&unix.POLLIN != 0 {
			if st := c.ReadStatus(); st != nil {
				return st, nil
			}
			continue
		}
		if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			return c.resolved(status.New(status.Dead)), nil
		}
	}
}

// Close releases the socket. It is idempotent; the channel is never reopened.
func (c *Channel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}
