//go:build linux

package descriptor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/comm"
)

const listenerWait = 2 * time.Second

func devNull(t *testing.T) int {
	t.Helper()
	fd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	require.NoError(t, err)
	return fd
}

func listen(t *testing.T, ctx context.Context) (*Descriptor, <-chan error) {
	t.Helper()
	calls := make(chan error, 4)
	d, err := FromFdWithListener(ctx, devNull(t), func(err error) {
		calls <- err
	}, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	return d, calls
}

func TestListener(t *testing.T) {
	tests := []struct {
		name  string
		close func(d *Descriptor)
		check func(t *testing.T, err error)
	}{
		{
			name:  "clean close",
			close: func(d *Descriptor) { d.Close() },
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:  "error",
			close: func(d *Descriptor) { d.CloseWithError("bad frame") },
			check: func(t *testing.T, err error) {
				var remote *RemoteError
				require.True(t, errors.As(err, &remote))
				assert.Equal(t, "bad frame", remote.Message)
			},
		},
		{
			name: "detach",
			close: func(d *Descriptor) {
				fd, _ := d.Detach()
				unix.Close(fd)
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrDetached) },
		},
		{
			name:  "leak",
			close: func(d *Descriptor) { d.finalize() },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRemoteLeaked) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, calls := listen(t, context.Background())
			assert.True(t, d.CanDetectErrors())

			tt.close(d)

			select {
			case err := <-calls:
				tt.check(t, err)
			case <-time.After(listenerWait):
				t.Fatal("listener not called")
			}
			select {
			case err := <-calls:
				t.Fatalf("listener called twice, second with %v", err)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}

func TestListenerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d, calls := listen(t, ctx)

	cancel()
	time.Sleep(50 * time.Millisecond)
	d.Close()

	select {
	case err := <-calls:
		t.Fatalf("listener called after cancel with %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOpenWithListener(t *testing.T) {
	path := tempPath(t, "watched")
	calls := make(chan error, 1)

	d, err := OpenWithListener(context.Background(), path, ModeWriteOnly|ModeCreate, func(err error) {
		calls <- err
	})
	require.NoError(t, err)
	assert.Equal(t, KindFile, d.Kind())
	require.NoError(t, d.CloseWithError("aborted upload"))

	select {
	case err := <-calls:
		var remote *RemoteError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, "aborted upload", remote.Message)
	case <-time.After(listenerWait):
		t.Fatal("listener not called")
	}
}

func TestListenerValidation(t *testing.T) {
	_, err := FromFdWithListener(context.Background(), 0, nil)
	assert.ErrorIs(t, err, ErrNilListener)
	_, err = FromFdWithListener(context.Background(), -1, func(error) {})
	assert.ErrorIs(t, err, ErrInvalidHandle)
	_, err = OpenWithListener(context.Background(), tempPath(t, "x"), ModeReadOnly, nil)
	assert.ErrorIs(t, err, ErrNilListener)
}

func TestFromFdWithListenerClosesFdOnFailure(t *testing.T) {
	orig := newCommPair
	newCommPair = func(...comm.Option) (*comm.Channel, *comm.Channel, error) {
		return nil, nil, unix.EMFILE
	}
	defer func() { newCommPair = orig }()

	fd := devNull(t)
	_, err := FromFdWithListener(context.Background(), fd, func(error) {})
	require.ErrorIs(t, err, unix.EMFILE)

	var st unix.Stat_t
	assert.ErrorIs(t, unix.Fstat(fd, &st), unix.EBADF, "fd must be closed")
}
