package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Format(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	gen := UUIDv7Generator{}
	prev := gen.Generate()
	for i := 0; i < 100; i++ {
		next := gen.Generate()
		assert.LessOrEqual(t, prev[:13], next[:13], "timestamp prefix must not go backwards")
		prev = next
	}
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
}
