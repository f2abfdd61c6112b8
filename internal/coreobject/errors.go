package coreobject

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is the panic value for initializing an object twice.
	ErrAlreadyInitialized = errors.New("coreobject: object already initialized")
	// ErrNotRegistered is the panic value for operating on an object the
	// manager does not know, including one already destroyed.
	ErrNotRegistered = errors.New("coreobject: object not registered")
	// ErrNotScheduled is the panic value for synchronizing on a core that
	// will never be initialized.
	ErrNotScheduled = errors.New("coreobject: core neither initialized nor scheduled for initialization")
)

// ShutdownError is the panic value raised when the manager is shut down
// with objects still alive.
type ShutdownError struct {
	Live  int
	Dirty int
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("coreobject: shutdown with %d live and %d dirty objects", e.Live, e.Dirty)
}

// IsShutdownError reports whether err is a *ShutdownError.
func IsShutdownError(err error) bool {
	var se *ShutdownError
	return errors.As(err, &se)
}
