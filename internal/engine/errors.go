package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotStarted: Frame or Shutdown before Start.
	ErrCodeNotStarted ErrorCode = "NOT_STARTED"

	// ErrCodeAlreadyStarted: Start called twice.
	ErrCodeAlreadyStarted ErrorCode = "ALREADY_STARTED"

	// ErrCodeClosed: the engine was shut down.
	ErrCodeClosed ErrorCode = "CLOSED"

	// ErrCodeCoreStopped: the core goroutine exited before the engine did.
	ErrCodeCoreStopped ErrorCode = "CORE_STOPPED"

	// ErrCodeJournal: writing the journal failed.
	ErrCodeJournal ErrorCode = "JOURNAL"
)

// Error is an operational engine failure.
type Error struct {
	Code    ErrorCode
	Message string
	RunID   string
	Frame   int64
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Frame > 0 {
		msg = fmt.Sprintf("%s (run=%s, frame=%d)", msg, e.RunID, e.Frame)
	} else if e.RunID != "" {
		msg = fmt.Sprintf("%s (run=%s)", msg, e.RunID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func (e *Engine) newError(code ErrorCode, frame int64, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		RunID:   e.runID,
		Frame:   frame,
		Err:     err,
	}
}
