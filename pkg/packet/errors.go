package packet

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDrive = errors.New("malformed drive packet")
	ErrMalformedArm   = errors.New("malformed arm packet")
	ErrUnknownCommand = errors.New("unknown command")
)

// DecodeError reports a packet that could not be decoded.
// Err is one of the sentinel errors above.
type DecodeError struct {
	Raw    string
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%q)", e.Err, e.Detail, e.Raw)
	}
	return fmt.Sprintf("%s: %q", e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
