package rfs

import (
	"bytes"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/remotefs/internal/protocol/xdr"
	"github.com/marmos91/remotefs/pkg/remote/handle"
)

// Failure is a Transported Failure: a domain error with enough structure
// to rebuild an equivalent error on the other side.
type Failure struct {
	Code      uint32
	Message   string
	Path      string
	OtherPath string
}

// Status is the discriminant of an Outcome.
type Status uint32

// Outcome arms.
const (
	StatusOK        Status = 0
	StatusFailed    Status = 1
	StatusStale     Status = 2
	StatusViolation Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusStale:
		return "stale"
	case StatusViolation:
		return "violation"
	default:
		return fmt.Sprintf("status_%d", uint32(s))
	}
}

// Outcome is the body of every successful REPLY of a fallible procedure.
// Exactly one arm is authoritative:
//
//	OK         Result holds the encoded procedure result
//	FAILED     Failure
//	STALE      Stale names the handle that did not resolve
//	VIOLATION  Violation describes what the server did wrong
type Outcome struct {
	Status    Status
	Result    []byte
	Failure   *Failure
	Stale     handle.Handle
	Violation string
}

// OK returns an OK outcome carrying an encoded result.
func OK(result []byte) *Outcome {
	return &Outcome{Status: StatusOK, Result: result}
}

// Failed returns a FAILED outcome.
func Failed(f *Failure) *Outcome {
	return &Outcome{Status: StatusFailed, Failure: f}
}

// Stale returns a STALE outcome.
func Stale(h handle.Handle) *Outcome {
	return &Outcome{Status: StatusStale, Stale: h}
}

// Violation returns a VIOLATION outcome.
func Violation(format string, args ...any) *Outcome {
	return &Outcome{Status: StatusViolation, Violation: fmt.Sprintf(format, args...)}
}

// Encode writes the status followed by its arm. The OK result is appended
// raw; it is always the last thing in the body.
func (o *Outcome) Encode(buf *bytes.Buffer) error {
	if err := xdr.EncodeUnionDiscriminant(buf, uint32(o.Status)); err != nil {
		return err
	}

	switch o.Status {
	case StatusOK:
		buf.Write(o.Result)
		return nil
	case StatusFailed:
		if o.Failure == nil {
			return fmt.Errorf("FAILED outcome without failure")
		}
		_, err := xdr2.Marshal(buf, o.Failure)
		return err
	case StatusStale:
		return EncodeHandle(buf, o.Stale)
	case StatusViolation:
		return xdr.WriteXDRString(buf, o.Violation)
	default:
		return fmt.Errorf("encode outcome: unknown status %d", uint32(o.Status))
	}
}

// Decode reads an Outcome. For OK the rest of the reader becomes Result.
func (o *Outcome) Decode(r io.Reader) error {
	disc, err := xdr.DecodeUnionDiscriminant(r)
	if err != nil {
		return fmt.Errorf("decode outcome status: %w", err)
	}
	*o = Outcome{Status: Status(disc)}

	switch o.Status {
	case StatusOK:
		o.Result, err = io.ReadAll(r)
	case StatusFailed:
		o.Failure = &Failure{}
		_, err = xdr2.Unmarshal(r, o.Failure)
	case StatusStale:
		o.Stale, err = DecodeHandle(r)
	case StatusViolation:
		o.Violation, err = xdr.DecodeString(r)
	default:
		return fmt.Errorf("decode outcome: unknown status %d", disc)
	}
	if err != nil {
		return fmt.Errorf("decode %s outcome: %w", o.Status, err)
	}
	return nil
}
