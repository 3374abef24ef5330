package status

import (
	"errors"
	"fmt"
)

var (
	ErrRemoteDead   = errors.New("remote side is dead")
	ErrDetached     = errors.New("remote side is detached")
	ErrRemoteLeaked = errors.New("remote side was leaked")
	ErrShortFrame   = errors.New("status: frame shorter than header")
	ErrFrameTooLong = errors.New("status: frame exceeds maximum size")
)

// RemoteError is reported when the peer closed with an explicit error.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Message
}

// UnknownStatusError is reported for a code this side does not understand.
type UnknownStatusError struct {
	Code Code
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("unknown status: %d", int32(e.Code))
}
