package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("remote transport failure")

	// ErrProtocolViolation matches every *ProtocolError.
	ErrProtocolViolation = errors.New("remote protocol violation")

	// ErrClosed is the cause of a TransportError raised on a connection that
	// was closed locally.
	ErrClosed = errors.New("connection closed")
)

// TransportError reports that a call could not be completed because the
// connection failed or the peer answered with something unusable. It never
// wraps a domain failure.
type TransportError struct {
	// Op is the procedure name, or the connection phase ("read", "hello").
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransport) true for any TransportError.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError reports that the peer broke the call contract, for example
// by both returning a result and raising a failure.
type ProtocolError struct {
	Proc   string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("remote %s: protocol violation: %s", e.Proc, e.Reason)
}

// Is makes errors.Is(err, ErrProtocolViolation) true for any ProtocolError.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocolViolation }

func transportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
