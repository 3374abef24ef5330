package status

import "fmt"

// Code identifies why a descriptor was closed.
type Code int32

const (
	Dead     Code = -2
	Silence  Code = -1
	OK       Code = 0
	Error    Code = 1
	Detached Code = 2
	Leaked   Code = 3
)

// String returns the lowercase name of the code
func (c Code) String() string {
	switch c {
	case Dead:
		return "dead"
	case Silence:
		return "silence"
	case OK:
		return "ok"
	case Error:
		return "error"
	case Detached:
		return "detached"
	case Leaked:
		return "leaked"
	default:
		return fmt.Sprintf("code(%d)", int32(c))
	}
}

// Status is a resolved remote close status.
type Status struct {
	Code    Code
	Message string
}

// New returns a status without a message.
func New(code Code) *Status {
	return &Status{Code: code}
}

// NewError returns an Error status carrying msg.
func NewError(msg string) *Status {
	return &Status{Code: Error, Message: msg}
}

// Err maps the status to the error a reader of the descriptor should see.
// OK maps to nil.
func (s *Status) Err() error {
	switch s.Code {
	case OK:
		return nil
	case Dead:
		return ErrRemoteDead
	case Error:
		return &RemoteError{Message: s.Message}
	case Detached:
		return ErrDetached
	case Leaked:
		return ErrRemoteLeaked
	default:
		return &UnknownStatusError{Code: s.Code}
	}
}

func (s *Status) String() string {
	return fmt.Sprintf("{%d: %s}", int32(s.Code), s.Message)
}
