package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_FirstFrameIsOne(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, int64(100), c.Current())
	assert.Equal(t, int64(101), c.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	frames := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				frames <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(frames)

	seen := make(map[int64]bool)
	for f := range frames {
		assert.False(t, seen[f], "frame %d issued twice", f)
		seen[f] = true
	}
	assert.Len(t, seen, goroutines*calls)
}
