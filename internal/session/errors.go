package session

import (
	"errors"

	"github.com/ligun0805/multisender/internal/gateway"
)

var (
	ErrClosed      = errors.New("session is closed")
	ErrNotAwaiting = errors.New("nothing is awaiting confirmation")
)

// ValidationError is a local precondition failure raised before any backend call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error { return &ValidationError{Err: err} }

// Kind classifies workflow failures.
type Kind int

const (
	KindNone Kind = iota
	KindValidation
	KindApplication
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindApplication:
		return "backend"
	case KindTransport:
		return "transport"
	default:
		return "none"
	}
}

// Failure reports which kind of failure err is. Unknown errors count as transport
// failures so they are surfaced with the generic network notice.
func Failure(err error) Kind {
	if err == nil {
		return KindNone
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return KindValidation
	}
	var a *gateway.ApplicationError
	if errors.As(err, &a) {
		return KindApplication
	}
	return KindTransport
}
