package descriptor

import (
	"errors"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/descriptor/status"
)

var (
	ErrClosed        = errors.New("descriptor: already closed")
	ErrAccessMode    = errors.New("descriptor: must specify ModeReadOnly, ModeWriteOnly, or ModeReadWrite")
	ErrEmptyMessage  = errors.New("descriptor: error message must not be empty")
	ErrNotRegular    = errors.New("descriptor: not a regular file")
	ErrNilListener   = errors.New("descriptor: listener must not be nil")
	ErrMalformed     = errors.New("descriptor: malformed transfer message")
	ErrInvalidHandle = errors.New("descriptor: invalid handle")
)

// Remote statuses surface through CheckError and readers as these errors.
var (
	ErrRemoteDead   = status.ErrRemoteDead
	ErrDetached     = status.ErrDetached
	ErrRemoteLeaked = status.ErrRemoteLeaked
)

// RemoteError carries the message of a peer that closed with an error.
type RemoteError = status.RemoteError
