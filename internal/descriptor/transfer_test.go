//go:build linux

package descriptor

import (
	"errors"
	"io"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func unixConnPair(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)

	conns := make([]*net.UnixConn, 2)
	for i, fd := range fds {
		f := os.NewFile(uintptr(fd), "transfer")
		c, err := net.FileConn(f)
		require.NoError(t, f.Close())
		require.NoError(t, err)
		conns[i] = c.(*net.UnixConn)
		t.Cleanup(func() { c.Close() })
	}
	return conns[0], conns[1]
}

func TestTransferReliable(t *testing.T) {
	sender, receiver := unixConnPair(t)
	r, w := reliablePipe(t)

	require.NoError(t, Send(sender, w, FlagReturnValue))
	_, err := w.Fd()
	assert.ErrorIs(t, err, ErrClosed, "ownership moves with FlagReturnValue")
	assert.NoError(t, r.CheckError(), "handing off must not signal the peer")
	assert.Nil(t, r.RemoteStatus())

	got, err := Receive(receiver)
	require.NoError(t, err)
	assert.Equal(t, KindReceived, got.Kind())
	assert.True(t, got.CanDetectErrors())

	_, err = NewWriter(got).Write([]byte("remote data"))
	require.NoError(t, err)
	require.NoError(t, got.CloseWithError("remote failure"))

	data, err := io.ReadAll(NewReader(r))
	assert.Equal(t, "remote data", string(data))
	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, "remote failure", remote.Message)
}

func TestTransferKeepsLocalCopy(t *testing.T) {
	sender, receiver := unixConnPair(t)
	path := tempPath(t, "shared")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	d, err := Open(path, ModeReadOnly)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, Send(sender, d, 0))
	_, err = d.Fd()
	assert.NoError(t, err)

	got, err := Receive(receiver)
	require.NoError(t, err)
	defer got.Close()
	assert.False(t, got.CanDetectErrors())
	p, err := got.Path()
	require.NoError(t, err)
	assert.Equal(t, path, p)
}

func TestReceiveMalformed(t *testing.T) {
	sender, receiver := unixConnPair(t)

	// Header promises a comm channel but no descriptors are attached.
	_, err := sender.Write([]byte{headerReliable})
	require.NoError(t, err)

	_, err = Receive(receiver)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReceiveEOF(t *testing.T) {
	sender, receiver := unixConnPair(t)
	require.NoError(t, sender.Close())

	_, err := Receive(receiver)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestSendClosed(t *testing.T) {
	sender, _ := unixConnPair(t)
	r, w, err := CreatePipe()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, r.Close())

	assert.ErrorIs(t, Send(sender, r, 0), ErrClosed)
}

func TestHandoff(t *testing.T) {
	r, w := reliablePipe(t)

	f, cf, err := w.Handoff()
	require.NoError(t, err)
	require.NotNil(t, cf)
	_, err = w.Fd()
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, r.CheckError())

	fd, err := dupFd(int(f.Fd()))
	require.NoError(t, err)
	commFd, err := dupFd(int(cf.Fd()))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, cf.Close())

	adopted, err := AdoptReliable(fd, commFd)
	require.NoError(t, err)
	fdOut, err := adopted.Detach()
	require.NoError(t, err)
	unix.Close(fdOut)

	_, err = io.ReadAll(NewReader(r))
	assert.ErrorIs(t, err, ErrDetached)
}

func TestFromConn(t *testing.T) {
	a, b := unixConnPair(t)

	d, err := FromConn(a)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, KindSocket, d.Kind())
	assert.False(t, d.CanDetectErrors())
	assert.EqualValues(t, -1, d.StatSize())

	// The caller's conn can go away; the duplicate keeps the socket open.
	require.NoError(t, a.Close())
	_, err = NewWriter(d).Write([]byte("over dup"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "over dup", string(buf[:n]))
}

func TestFromConnUDP(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	d, err := FromConn(conn)
	require.NoError(t, err)
	defer d.Close()

	fd, err := d.Fd()
	require.NoError(t, err)
	sa, err := unix.Getsockname(fd)
	require.NoError(t, err)
	inet, ok := sa.(*unix.SockaddrInet4)
	require.True(t, ok)
	assert.Equal(t, conn.LocalAddr().(*net.UDPAddr).Port, inet.Port)
}
