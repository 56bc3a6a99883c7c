package remote

import (
	"fmt"
	"sync"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/pkg/remote/handle"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// Channel is the single-slot failure holder of one remote operation. The
// stub hands it to the operation body, which stores at most one domain
// failure; settle then folds result and channel into an rfs.Outcome.
type Channel struct {
	mu       sync.Mutex
	failure  *vfs.Error
	violated bool
}

// Set stores f. Storing twice is a protocol violation: the channel keeps
// the first failure, remembers the violation and returns
// ErrProtocolViolation.
func (c *Channel) Set(f *vfs.Error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		c.violated = true
		return &ProtocolError{Proc: "channel", Reason: "failure set twice"}
	}
	c.failure = f
	return nil
}

// ThrowIfNotNull returns the stored failure, or nil when the operation
// succeeded.
func (c *Channel) ThrowIfNotNull() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure == nil {
		return nil
	}
	return c.failure
}

// Violated reports whether Set was called more than once.
func (c *Channel) Violated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violated
}

// settle turns an operation's encoded result and its channel into exactly
// one Outcome arm.
func settle(result []byte, ch *Channel) *rfs.Outcome {
	ch.mu.Lock()
	failure, violated := ch.failure, ch.violated
	ch.mu.Unlock()

	switch {
	case violated:
		return rfs.Violation("failure reported more than once")
	case failure != nil && len(result) > 0:
		return rfs.Violation("operation returned a result and raised %s", failure.Code)
	case failure != nil:
		return rfs.Failed(toFailure(failure))
	default:
		return rfs.OK(result)
	}
}

// outcomeError is the caller's side of settle. A FAILED outcome is loaded
// into a fresh Channel and raised from there.
func outcomeError(proc string, out *rfs.Outcome) error {
	switch out.Status {
	case rfs.StatusOK:
		return nil
	case rfs.StatusFailed:
		if out.Failure == nil {
			return &ProtocolError{Proc: proc, Reason: "FAILED outcome without a failure"}
		}
		var ch Channel
		if err := ch.Set(fromFailure(out.Failure)); err != nil {
			return err
		}
		return ch.ThrowIfNotNull()
	case rfs.StatusStale:
		return handle.NewStaleError(out.Stale, "released by peer")
	case rfs.StatusViolation:
		return &ProtocolError{Proc: proc, Reason: out.Violation}
	default:
		return &ProtocolError{Proc: proc, Reason: fmt.Sprintf("unknown outcome status %d", out.Status)}
	}
}

func toFailure(e *vfs.Error) *rfs.Failure {
	return &rfs.Failure{
		Code:      uint32(e.Code),
		Message:   e.Message,
		Path:      e.Path,
		OtherPath: e.OtherPath,
	}
}

func fromFailure(f *rfs.Failure) *vfs.Error {
	return &vfs.Error{
		Code:      vfs.ErrorCode(f.Code),
		Message:   f.Message,
		Path:      f.Path,
		OtherPath: f.OtherPath,
	}
}
