// Package transport defines the control-transfer contract used to talk to
// controllers and bootloaders, and implements it on top of libusb.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds every individual control transfer.
const DefaultTimeout = 1600 * time.Millisecond

// Direction is the data stage direction of a control transfer.
type Direction uint8

const (
	// Out transfers data from host to device.
	Out Direction = iota
	// In transfers data from device to host.
	In
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Transport issues vendor control transfers to one device. Implementations
// are not safe for concurrent use.
type Transport interface {
	// Control performs one vendor request. For In transfers data receives
	// the response; for Out transfers it is the payload. It returns the
	// number of bytes transferred.
	Control(dir Direction, request uint8, value, index uint16, data []byte) (int, error)
	Close() error
}

// Kind categorizes transport failures.
type Kind uint8

const (
	KindOther Kind = iota
	KindStall
	KindTimeout
	KindDisconnected
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindStall:
		return "stall"
	case KindTimeout:
		return "timeout"
	case KindDisconnected:
		return "disconnected"
	case KindAccessDenied:
		return "access denied"
	}
	return "other"
}

// Error is a failed transfer. Op names the operation that was attempted.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// LengthError reports a transfer that moved fewer or more bytes than
// expected.
type LengthError struct {
	Op       string
	Expected int
	Actual   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s: expected %d bytes, transferred %d", e.Op, e.Expected, e.Actual)
}

// IsKind reports whether err wraps a transport Error of kind k.
func IsKind(err error, k Kind) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == k
}

// IsStall reports whether err is a stalled request. Bootloaders stall a
// request to signal a device-side error.
func IsStall(err error) bool {
	return IsKind(err, KindStall)
}
