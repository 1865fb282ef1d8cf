package coordinator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_SetReadyClear(t *testing.T) {
	var g Gate
	assert.False(t, g.Ready())

	g.Set()
	assert.True(t, g.Ready())
	assert.True(t, g.Ready(), "Ready must not consume the latch")

	g.Clear()
	assert.False(t, g.Ready())
}

func TestGate_SetIsIdempotent(t *testing.T) {
	var g Gate
	g.Set()
	g.Set()
	assert.True(t, g.Ready())

	g.Clear()
	assert.False(t, g.Ready(), "one Clear covers any number of Sets")
}

func TestGate_ConcurrentSetters(t *testing.T) {
	var g Gate
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Set()
		}()
	}
	wg.Wait()
	assert.True(t, g.Ready())
}
