package coreobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAlloc_ReusesChunksAfterClear(t *testing.T) {
	a := NewFrameAlloc(64)

	for frame := 0; frame < 10; frame++ {
		for i := 0; i < 5; i++ {
			b := a.Alloc(24)
			require.Len(t, b, 24)
		}
		a.Clear()
	}

	// 5 x 24 bytes needs two 64-byte chunks per frame.
	assert.Equal(t, 2, a.Chunks())
	assert.Equal(t, uint64(10), a.Frames())
}

func TestFrameAlloc_ZeroesRecycledMemory(t *testing.T) {
	a := NewFrameAlloc(16)
	b := a.Alloc(8)
	for i := range b {
		b[i] = 0xff
	}
	a.Clear()

	b = a.Alloc(8)
	assert.Equal(t, make([]byte, 8), b)
}

func TestFrameAlloc_AllocationsDoNotOverlap(t *testing.T) {
	a := NewFrameAlloc(16)
	x := a.Alloc(8)
	y := a.Alloc(8)

	grown := append(x, 1)
	assert.Len(t, grown, 9)
	assert.Equal(t, make([]byte, 8), y, "capped slices must not grow into their neighbour")
	assert.Equal(t, 16, a.Used())
	assert.Equal(t, 2, a.Allocs())
}

func TestFrameAlloc_Oversize(t *testing.T) {
	a := NewFrameAlloc(16)
	b := a.Alloc(100)

	assert.Len(t, b, 100)
	assert.Equal(t, 0, a.Chunks())
}

func TestFrameAlloc_Nil(t *testing.T) {
	var a *FrameAlloc
	assert.Len(t, a.Alloc(5), 5)
	assert.Nil(t, NewFrameAlloc(0).Alloc(0))
}

func TestCoreState_SynchronizeUnscheduledPanics(t *testing.T) {
	var s CoreState
	assert.PanicsWithError(t, ErrNotScheduled.Error(), s.Synchronize)
}

func TestCoreState_SynchronizeAfterInit(t *testing.T) {
	var s CoreState
	s.markInitialized()
	s.markInitialized()

	assert.NotPanics(t, s.Synchronize)
}
