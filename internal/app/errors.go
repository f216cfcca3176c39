package app

import (
	"errors"
	"fmt"
)

// Severity classifies a failure.
type Severity uint8

const (
	// Recoverable failures end the current session only.
	Recoverable Severity = iota
	// Fatal failures stop the coordinator.
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Recoverable:
		return "recoverable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// Error is a failure with its severity and the operation that failed.
type Error struct {
	Severity Severity
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewFatal returns a fatal error for op.
func NewFatal(op string, err error) *Error {
	return &Error{Severity: Fatal, Op: op, Err: err}
}

// NewRecoverable returns a recoverable error for op.
func NewRecoverable(op string, err error) *Error {
	return &Error{Severity: Recoverable, Op: op, Err: err}
}

// IsFatal reports whether err carries a fatal Error.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Severity == Fatal
}
