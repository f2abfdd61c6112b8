package cmdqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCompleted is the panic value when an AsyncOp is completed twice.
	ErrAlreadyCompleted = errors.New("cmdqueue: async operation already completed")
	// ErrNotCompleted is the panic value when reading the result of a pending AsyncOp.
	ErrNotCompleted = errors.New("cmdqueue: async operation has not completed")
)

// BreakpointError is the panic value raised when a registered breakpoint is reached.
type BreakpointError struct {
	QueueIdx   uint32
	CommandIdx uint32
}

func (e *BreakpointError) Error() string {
	return fmt.Sprintf("cmdqueue: breakpoint hit (queue=%d, command=%d)", e.QueueIdx, e.CommandIdx)
}

// IsBreakpointError reports whether err is a *BreakpointError.
func IsBreakpointError(err error) bool {
	var be *BreakpointError
	return errors.As(err, &be)
}
