//go:build linux

package descriptor

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
)

// SendFlags modify Send.
type SendFlags int

const (
	// FlagReturnValue hands ownership to the receiver: after sending, the
	// local descriptor is closed without signalling the peer.
	FlagReturnValue SendFlags = 1 << iota
)

const (
	headerPlain    byte = 0
	headerReliable byte = 1
)

// Send passes d to the process on the other end of conn using SCM_RIGHTS.
// A reliable descriptor travels with its status channel.
func Send(conn *net.UnixConn, d *Descriptor, flags SendFlags) error {
	fd, err := d.Fd()
	if err != nil {
		return err
	}

	header := []byte{headerPlain}
	fds := []int{fd}
	if d.comm != nil {
		header[0] = headerReliable
		fds = append(fds, d.comm.Fd())
	}

	if _, _, err := conn.WriteMsgUnix(header, unix.UnixRights(fds...), nil); err != nil {
		return fmt.Errorf("sending %s: %w", d, err)
	}

	if flags&FlagReturnValue != 0 {
		// Not a real close, so emit no status.
		d.closeWithStatus(status.Silence, "")
	}
	return nil
}

// Handoff moves d into files suitable for exec.Cmd.ExtraFiles: the primary
// descriptor and, when reliable, its status channel (nil otherwise). d is
// closed without signalling, so the peer hears from whoever adopts the
// files.
func (d *Descriptor) Handoff() (file, commFile *os.File, err error) {
	file, err = d.File()
	if err != nil {
		return nil, nil, err
	}
	commFile, err = d.CommFile()
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	d.closeWithStatus(status.Silence, "")
	return file, commFile, nil
}

// Receive reads one descriptor sent with Send. It returns io.EOF when conn
// is closed before a message arrives.
func Receive(conn *net.UnixConn, opts ...Option) (*Descriptor, error) {
	header := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(2*4))

	n, oobn, recvFlags, _, err := conn.ReadMsgUnix(header, oob)
	if err != nil {
		return nil, fmt.Errorf("receiving descriptor: %w", err)
	}
	fds, parseErr := parseRights(oob[:oobn])
	if n == 0 && len(fds) == 0 && parseErr == nil {
		return nil, io.EOF
	}

	want := 1
	if n == 1 && header[0] == headerReliable {
		want = 2
	}
	switch {
	case parseErr != nil:
		err = parseErr
	case recvFlags&unix.MSG_CTRUNC != 0:
		err = errors.New("control message truncated")
	case n != 1 || header[0] > headerReliable:
		err = fmt.Errorf("bad header (%d bytes)", n)
	case len(fds) != want:
		err = fmt.Errorf("got %d descriptors, want %d", len(fds), want)
	}
	if err != nil {
		closeAll(fds)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	o := buildOptions(opts)
	var ch *comm.Channel
	if want == 2 {
		ch, err = comm.FromFd(fds[1], o.commOptions()...)
		if err != nil {
			closeAll(fds)
			return nil, err
		}
	}
	return newDescriptor(fds[0], ch, KindReceived, o), nil
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for i := range msgs {
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			closeAll(fds)
			return nil, err
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}
