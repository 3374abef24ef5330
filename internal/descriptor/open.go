//go:build linux

package descriptor

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

func openFlags(mode Mode) (flags int, perm uint32, err error) {
	switch mode & ModeReadWrite {
	case ModeReadOnly:
		flags = unix.O_RDONLY
	case ModeWriteOnly:
		flags = unix.O_WRONLY
	case ModeReadWrite:
		flags = unix.O_RDWR
	default:
		return 0, 0, ErrAccessMode
	}
	flags |= unix.O_CLOEXEC
	if mode&ModeCreate != 0 {
		flags |= unix.O_CREAT
	}
	if mode&ModeTruncate != 0 {
		flags |= unix.O_TRUNC
	}
	if mode&ModeAppend != 0 {
		flags |= unix.O_APPEND
	}

	perm = unix.S_IRWXU | unix.S_IRWXG
	if mode&ModeWorldReadable != 0 {
		perm |= unix.S_IROTH
	}
	if mode&ModeWorldWriteable != 0 {
		perm |= unix.S_IWOTH
	}
	return flags, perm, nil
}

func openFd(path string, mode Mode) (int, error) {
	flags, perm, err := openFlags(mode)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Open(path, flags, perm)
	if err != nil {
		return -1, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return fd, nil
}

// Open opens path with the given mode.
func Open(path string, mode Mode, opts ...Option) (*Descriptor, error) {
	fd, err := openFd(path, mode)
	if err != nil {
		return nil, err
	}
	return newDescriptor(fd, nil, KindFile, buildOptions(opts)), nil
}

// OpenWithListener opens path and watches the returned descriptor: listener
// runs once when whoever ends up holding it closes it.
func OpenWithListener(ctx context.Context, path string, mode Mode, listener OnClose, opts ...Option) (*Descriptor, error) {
	if listener == nil {
		return nil, ErrNilListener
	}
	fd, err := openFd(path, mode)
	if err != nil {
		return nil, err
	}
	d, err := watchFd(ctx, fd, KindFile, listener, buildOptions(opts))
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}
