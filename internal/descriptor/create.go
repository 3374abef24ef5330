//go:build linux

package descriptor

import (
	"fmt"
	"os"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
)

// SocketType selects the AF_UNIX socket type for socket pairs.
type SocketType int

const (
	SocketStream    SocketType = unix.SOCK_STREAM
	SocketDatagram  SocketType = unix.SOCK_DGRAM
	SocketSeqPacket SocketType = unix.SOCK_SEQPACKET
)

func (t SocketType) String() string {
	switch t {
	case SocketStream:
		return "stream"
	case SocketDatagram:
		return "datagram"
	case SocketSeqPacket:
		return "seqpacket"
	default:
		return fmt.Sprintf("socket(%d)", int(t))
	}
}

// CreatePipe returns the read and write ends of a new pipe.
func CreatePipe(opts ...Option) (r, w *Descriptor, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, nil, fmt.Errorf("creating pipe: %w", err)
	}
	o := buildOptions(opts)
	return newDescriptor(fds[0], nil, KindPipe, o), newDescriptor(fds[1], nil, KindPipe, o), nil
}

// CreateReliablePipe is CreatePipe with a status channel between the ends,
// so the reader can tell a clean close from an error or a crash.
func CreateReliablePipe(opts ...Option) (r, w *Descriptor, err error) {
	o := buildOptions(opts)
	c0, c1, err := comm.NewPair(o.commOptions()...)
	if err != nil {
		return nil, nil, err
	}
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		c0.Close()
		c1.Close()
		return nil, nil, fmt.Errorf("creating pipe: %w", err)
	}
	return newDescriptor(fds[0], c0, KindPipe, o), newDescriptor(fds[1], c1, KindPipe, o), nil
}

// CreateSocketPair returns two connected AF_UNIX sockets of the given type.
func CreateSocketPair(typ SocketType, opts ...Option) (*Descriptor, *Descriptor, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, int(typ)|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s socketpair: %w", typ, err)
	}
	o := buildOptions(opts)
	return newDescriptor(fds[0], nil, KindSocket, o), newDescriptor(fds[1], nil, KindSocket, o), nil
}

// CreateReliableSocketPair is CreateSocketPair with a status channel.
func CreateReliableSocketPair(typ SocketType, opts ...Option) (*Descriptor, *Descriptor, error) {
	o := buildOptions(opts)
	c0, c1, err := comm.NewPair(o.commOptions()...)
	if err != nil {
		return nil, nil, err
	}
	fds, err := unix.Socketpair(unix.AF_UNIX, int(typ)|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		c0.Close()
		c1.Close()
		return nil, nil, fmt.Errorf("creating %s socketpair: %w", typ, err)
	}
	return newDescriptor(fds[0], c0, KindSocket, o), newDescriptor(fds[1], c1, KindSocket, o), nil
}

// FromFd duplicates fd into a new Descriptor. The caller keeps fd.
func FromFd(fd int, opts ...Option) (*Descriptor, error) {
	nfd, err := dupFd(fd)
	if err != nil {
		return nil, err
	}
	return newDescriptor(nfd, nil, KindDup, buildOptions(opts)), nil
}

// FromConn duplicates the socket behind c, such as a *net.UnixConn or
// *net.UDPConn, into a new Descriptor. The caller keeps c. The duplicate
// shares c's file status flags, including non-blocking mode.
func FromConn(c syscall.Conn, opts ...Option) (*Descriptor, error) {
	rc, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("accessing conn: %w", err)
	}
	nfd := -1
	var dupErr error
	if err := rc.Control(func(fd uintptr) {
		nfd, dupErr = dupFd(int(fd))
	}); err != nil {
		return nil, fmt.Errorf("accessing conn: %w", err)
	}
	if dupErr != nil {
		return nil, dupErr
	}
	return newDescriptor(nfd, nil, KindSocket, buildOptions(opts)), nil
}

// Adopt takes ownership of fd without duplicating it.
func Adopt(fd int, opts ...Option) (*Descriptor, error) {
	if fd < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, fd)
	}
	return newDescriptor(fd, nil, KindAdopted, buildOptions(opts)), nil
}

// AdoptReliable takes ownership of fd and of commFd as its status channel.
// It is how a child process picks up a reliable descriptor inherited from
// its parent.
func AdoptReliable(fd, commFd int, opts ...Option) (*Descriptor, error) {
	if fd < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, fd)
	}
	o := buildOptions(opts)
	ch, err := comm.FromFd(commFd, o.commOptions()...)
	if err != nil {
		return nil, err
	}
	return newDescriptor(fd, ch, KindAdopted, o), nil
}

// CreatePTY opens a pseudo-terminal and returns its master and slave ends.
func CreatePTY(opts ...Option) (master, slave *Descriptor, err error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening pty: %w", err)
	}
	mfd, err := takeFile(ptmx)
	if err != nil {
		tty.Close()
		return nil, nil, err
	}
	sfd, err := takeFile(tty)
	if err != nil {
		unix.Close(mfd)
		return nil, nil, err
	}
	o := buildOptions(opts)
	return newDescriptor(mfd, nil, KindPTY, o), newDescriptor(sfd, nil, KindPTY, o), nil
}

// takeFile moves f's descriptor out of the os.File, which is then closed.
func takeFile(f *os.File) (int, error) {
	defer f.Close()
	return dupFd(int(f.Fd()))
}
