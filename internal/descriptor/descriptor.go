//go:build linux

package descriptor

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/shared/id"
)

// Descriptor kinds, used for tracking and metric labels.
const (
	KindAdopted  = "adopted"
	KindDup      = "dup"
	KindFile     = "file"
	KindMemory   = "memfd"
	KindPipe     = "pipe"
	KindPTY      = "pty"
	KindReceived = "received"
	KindSocket   = "socket"
)

// Descriptor owns one OS file descriptor and, when reliable, the status
// channel shared with its peer. A Descriptor has a single owner and is not
// safe for concurrent use, except that Close may race with the leak
// finalizer.
type Descriptor struct {
	id     id.DescriptorID
	fd     int
	kind   string
	comm   *comm.Channel
	remote *status.Status
	closed atomic.Bool
	opts   options
}

func newDescriptor(fd int, ch *comm.Channel, kind string, o options) *Descriptor {
	d := &Descriptor{
		id:   id.NewDescriptorID(),
		fd:   fd,
		kind: kind,
		comm: ch,
		opts: o,
	}
	o.tracker.add(Entry{
		ID:       d.id,
		Fd:       fd,
		Kind:     kind,
		Reliable: ch != nil,
		OpenedAt: d.id.Time(),
	})
	o.recorder.DescriptorOpened(kind)
	runtime.SetFinalizer(d, (*Descriptor).finalize)
	return d
}

// New wraps fd and an optional status channel. The Descriptor takes
// ownership of both.
func New(fd int, ch *comm.Channel, opts ...Option) (*Descriptor, error) {
	if fd < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, fd)
	}
	return newDescriptor(fd, ch, KindAdopted, buildOptions(opts)), nil
}

// ID returns the descriptor's unique identifier.
func (d *Descriptor) ID() id.DescriptorID {
	return d.id
}

// Kind returns how the descriptor was created.
func (d *Descriptor) Kind() string {
	return d.kind
}

// Fd returns the raw descriptor. The Descriptor keeps ownership.
func (d *Descriptor) Fd() (int, error) {
	if d.closed.Load() {
		return -1, ErrClosed
	}
	return d.fd, nil
}

// File returns a duplicate of the descriptor as an *os.File owned by the
// caller, e.g. for exec.Cmd.ExtraFiles.
func (d *Descriptor) File() (*os.File, error) {
	fd, err := d.Fd()
	if err != nil {
		return nil, err
	}
	nfd, err := dupFd(fd)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(nfd), d.String()), nil
}

// CommFile returns a duplicate of the status channel as an *os.File, or nil
// when the descriptor is not reliable.
func (d *Descriptor) CommFile() (*os.File, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if d.comm == nil {
		return nil, nil
	}
	nfd, err := dupFd(d.comm.Fd())
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(nfd), d.String()+"-comm"), nil
}

// Dup returns an independent, unreliable descriptor for the same open file.
func (d *Descriptor) Dup() (*Descriptor, error) {
	fd, err := d.Fd()
	if err != nil {
		return nil, err
	}
	nfd, err := dupFd(fd)
	if err != nil {
		return nil, err
	}
	return newDescriptor(nfd, nil, KindDup, d.opts), nil
}

// StatSize returns the size of a regular file or symlink, and -1 for
// anything else or when fstat fails.
func (d *Descriptor) StatSize() int64 {
	fd, err := d.Fd()
	if err != nil {
		return -1
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		d.opts.logger.Warn("fstat failed", zap.Int("fd", fd), zap.Error(err))
		return -1
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG, unix.S_IFLNK:
		return st.Size
	default:
		return -1
	}
}

// SeekTo moves the file offset to pos and returns the new offset.
func (d *Descriptor) SeekTo(pos int64) (int64, error) {
	fd, err := d.Fd()
	if err != nil {
		return 0, err
	}
	off, err := unix.Seek(fd, pos, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("seek %s: %w", d, err)
	}
	return off, nil
}

// Path resolves the descriptor to a regular file path.
func (d *Descriptor) Path() (string, error) {
	fd, err := d.Fd()
	if err != nil {
		return "", err
	}
	path, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", fd))
	if err != nil {
		return "", err
	}
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", &os.PathError{Op: "stat", Path: path, Err: err}
	}
	if st.Mode&unix.S_IFMT != unix.S_IFREG {
		return "", fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	return path, nil
}

// CanDetectErrors reports whether the descriptor still has a status channel.
func (d *Descriptor) CanDetectErrors() bool {
	return d.comm != nil
}

// RemoteStatus returns the peer status observed so far, or nil if none.
func (d *Descriptor) RemoteStatus() *status.Status {
	return d.remote
}

// CheckError reads the peer status once and reports it as an error. It
// returns nil while the peer has not reported, after a clean close, and when
// there is no status channel to check.
func (d *Descriptor) CheckError() error {
	if d.remote == nil {
		if d.comm == nil {
			d.opts.logger.Warn("Peer didn't provide a comm channel; unable to check for errors",
				zap.Stringer("id", d.id),
			)
			return nil
		}
		// nil when nothing was written yet; comm stays open for our own status.
		d.remote = d.comm.ReadStatus()
	}
	if d.remote == nil {
		return nil
	}
	return d.remote.Err()
}

// Close reports OK to the peer and closes the descriptor. Calling Close
// more than once has no effect.
func (d *Descriptor) Close() error {
	d.closeWithStatus(status.OK, "")
	return nil
}

// CloseWithError reports msg to the peer as an error and closes the
// descriptor. msg must not be empty.
func (d *Descriptor) CloseWithError(msg string) error {
	if msg == "" {
		return ErrEmptyMessage
	}
	d.closeWithStatus(status.Error, msg)
	return nil
}

// Detach hands the raw descriptor to the caller, who becomes responsible for
// closing it. The peer is told Detached; no further signal is possible.
func (d *Descriptor) Detach() (int, error) {
	if !d.closed.CompareAndSwap(false, true) {
		return -1, ErrClosed
	}
	runtime.SetFinalizer(d, nil)

	fd := d.fd
	d.fd = -1
	d.reportAndCloseComm(status.Detached, "")
	d.release()
	return fd, nil
}

func (d *Descriptor) closeWithStatus(code status.Code, msg string) {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(d, nil)

	// Status must reach the peer before the primary descriptor closes.
	d.reportAndCloseComm(code, msg)
	if err := unix.Close(d.fd); err != nil {
		d.opts.logger.Warn("Failed to close descriptor",
			zap.Stringer("id", d.id),
			zap.Int("fd", d.fd),
			zap.Error(err),
		)
	}
	d.fd = -1
	d.release()
}

func (d *Descriptor) reportAndCloseComm(code status.Code, msg string) {
	if d.comm == nil {
		if msg != "" {
			d.opts.logger.Warn("Unable to inform peer", zap.String("message", msg))
		}
		return
	}
	if code == status.Detached {
		d.opts.logger.Warn("Peer expected signal when closed; unable to deliver after detach",
			zap.Stringer("id", d.id),
		)
	}

	defer func() {
		if err := d.comm.Close(); err != nil {
			d.opts.logger.Debug("Failed to close status channel", zap.Error(err))
		}
		d.comm = nil
	}()

	if code == status.Silence || d.remote != nil {
		return
	}
	d.remote = d.comm.WriteStatus(code, msg)
}

func (d *Descriptor) release() {
	d.opts.tracker.remove(d.id)
	d.opts.recorder.DescriptorClosed(d.kind)
}

func (d *Descriptor) finalize() {
	if d.closed.Load() {
		return
	}
	d.opts.logger.Warn("Descriptor was never closed; reporting leak",
		zap.Stringer("id", d.id),
		zap.Int("fd", d.fd),
		zap.String("kind", d.kind),
	)
	d.opts.recorder.DescriptorLeaked(d.kind)
	d.closeWithStatus(status.Leaked, "")
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("{Descriptor %s: fd=%d kind=%s}", d.id, d.fd, d.kind)
}

func dupFd(fd int) (int, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("dup fd %d: %w", fd, err)
	}
	return nfd, nil
}

func readFd(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func writeFd(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}
