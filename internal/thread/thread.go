// Package thread identifies the goroutines that own engine state.
//
// The engine runs two long-lived goroutines: the sim goroutine, which owns
// game-level objects, and the core goroutine, which owns render-side state.
// Components bound to one of them record its goroutine id at construction and
// assert on every owner-only call. A violation is a latent race, so it panics
// instead of returning an error.
package thread

import (
	"errors"
	"fmt"

	"github.com/petermattis/goid"
)

// ID is a goroutine identifier.
type ID int64

// Current returns the id of the calling goroutine.
func Current() ID {
	return ID(goid.Get())
}

// Affinity records which goroutine owns a component.
//
// The zero value is unbound: checks always pass. Use Bind to pin the
// component to the calling goroutine.
type Affinity struct {
	owner ID
	bound bool
}

// Bind returns an Affinity owned by the calling goroutine.
func Bind() Affinity {
	return Affinity{owner: Current(), bound: true}
}

// Unbound returns an Affinity that accepts calls from any goroutine.
// Used by multi-producer components that serialize access with a mutex.
func Unbound() Affinity {
	return Affinity{}
}

// Rebind moves ownership to the calling goroutine.
// Valid only while no other goroutine is using the component, e.g. when a
// loop is constructed on one goroutine and then started on another.
func (a *Affinity) Rebind() {
	a.owner = Current()
	a.bound = true
}

// Owner returns the owning goroutine, or 0 when unbound.
func (a Affinity) Owner() ID {
	return a.owner
}

// Bound reports whether checks are enforced.
func (a Affinity) Bound() bool {
	return a.bound
}

// IsOwner reports whether the calling goroutine owns the component.
func (a Affinity) IsOwner() bool {
	return !a.bound || Current() == a.owner
}

// Check panics with *Error when called from a goroutine other than the owner.
func (a Affinity) Check(component, op string) {
	if !a.bound {
		return
	}
	if caller := Current(); caller != a.owner {
		panic(&Error{Component: component, Op: op, Owner: a.owner, Caller: caller})
	}
}

// CheckNotOwner panics with *Error when the owner itself makes the call.
// It guards the consumer side of a component whose owner is the producer.
func (a Affinity) CheckNotOwner(component, op string) {
	if !a.bound {
		return
	}
	if caller := Current(); caller == a.owner {
		panic(&Error{Component: component, Op: op, Owner: a.owner, Caller: caller, OwnerForbidden: true})
	}
}

// Error reports a call made from the wrong goroutine.
type Error struct {
	Component string
	Op        string
	Owner     ID
	Caller    ID
	// OwnerForbidden is set when the owner made a call reserved for
	// another goroutine.
	OwnerForbidden bool
}

func (e *Error) Error() string {
	if e.OwnerForbidden {
		return fmt.Sprintf("%s: %s called from owner goroutine %d",
			e.Component, e.Op, e.Caller)
	}
	return fmt.Sprintf("%s: %s called from goroutine %d, owner is goroutine %d",
		e.Component, e.Op, e.Caller, e.Owner)
}

// IsAffinityError reports whether err (or a panic value) is a thread affinity violation.
func IsAffinityError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
