//go:build linux

package descriptor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const memfdSeals = unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL

// FromData returns a read-only, sealed in-memory file holding data,
// positioned at offset zero. name only shows up in /proc.
func FromData(data []byte, name string, opts ...Option) (*Descriptor, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create %q: %w", name, err)
	}
	if err := fillMemfd(fd, data); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return newDescriptor(fd, nil, KindMemory, buildOptions(opts)), nil
}

func fillMemfd(fd int, data []byte) error {
	for len(data) > 0 {
		n, err := writeFd(fd, data)
		if err != nil {
			return fmt.Errorf("writing memfd: %w", err)
		}
		data = data[n:]
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, memfdSeals); err != nil {
		return fmt.Errorf("sealing memfd: %w", err)
	}
	if _, err := unix.Seek(fd, 0, 0); err != nil {
		return fmt.Errorf("rewinding memfd: %w", err)
	}
	return nil
}
