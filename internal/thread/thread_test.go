package thread

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_OwnerPasses(t *testing.T) {
	a := Bind()

	assert.True(t, a.Bound())
	assert.True(t, a.IsOwner())
	assert.Equal(t, Current(), a.Owner())
	assert.NotPanics(t, func() { a.Check("test", "op") })
}

func TestBind_OtherGoroutinePanics(t *testing.T) {
	a := Bind()

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		a.Check("queue", "Queue")
	}()

	r := <-recovered
	require.NotNil(t, r, "check from a foreign goroutine should panic")
	err, ok := r.(error)
	require.True(t, ok)
	assert.True(t, IsAffinityError(err))
	assert.Contains(t, err.Error(), "queue: Queue called from goroutine")
}

func TestCheckNotOwner(t *testing.T) {
	a := Bind()

	r := func() (r any) {
		defer func() { r = recover() }()
		a.CheckNotOwner("queue", "Playback")
		return nil
	}()
	require.NotNil(t, r, "the owner itself must be refused")
	err, ok := r.(error)
	require.True(t, ok)
	assert.True(t, IsAffinityError(err))
	assert.Contains(t, err.Error(), "queue: Playback called from owner goroutine")

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		a.CheckNotOwner("queue", "Playback")
	}()
	assert.Nil(t, <-done)

	assert.NotPanics(t, func() { Unbound().CheckNotOwner("queue", "Playback") })
}

func TestUnbound_AnyGoroutine(t *testing.T) {
	a := Unbound()

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		a.Check("queue", "Queue")
	}()

	assert.Nil(t, <-done)
	assert.False(t, a.Bound())
	assert.Equal(t, ID(0), a.Owner())
}

func TestRebind(t *testing.T) {
	var a Affinity
	ready := make(chan struct{})
	done := make(chan any, 1)

	go func() {
		a.Rebind()
		close(ready)
		defer func() { done <- recover() }()
		a.Check("loop", "Run")
	}()

	<-ready
	assert.Nil(t, <-done)
	assert.False(t, a.IsOwner(), "test goroutine no longer owns the affinity")
}
