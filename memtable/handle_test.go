package memtable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_SwapVisibility(t *testing.T) {
	initial := New(KindSkipList, 0)
	h := NewHandle(initial)
	require.Same(t, initial, h.Load())

	next := New(KindVector, 0)
	prev := h.Swap(next)
	assert.Same(t, initial, prev)

	// Every load after Swap returns observes the new strategy.
	assert.Same(t, next, h.Load())
	assert.Equal(t, KindVector, h.Load().Kind())
}

func TestHandle_CompareAndSwap(t *testing.T) {
	initial := New(KindSkipList, 0)
	h := NewHandle(initial)

	// A sealer holding the active memtable may replace it.
	fresh := New(KindSkipList, 0)
	require.True(t, h.CompareAndSwap(initial, fresh))
	assert.Same(t, fresh, h.Load())

	// A sealer holding a retired memtable must lose: the strategy switch
	// that replaced it stays in effect.
	switched := New(KindVector, 0)
	h.Swap(switched)
	stale := New(KindSkipList, 0)
	assert.False(t, h.CompareAndSwap(fresh, stale))
	assert.Same(t, switched, h.Load())
	assert.Equal(t, KindVector, h.Load().Kind())
}

func TestHandle_ConcurrentReadersDuringSwaps(t *testing.T) {
	h := NewHandle(New(KindSkipList, 0))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				mt := h.Load()
				// A reader must always observe a fully constructed
				// memtable, never a nil or partial one.
				require.NotNil(t, mt)
				mt.Put([]byte("k"), []byte("v"))
				mt.Get([]byte("k"))
			}
		}()
	}

	kinds := []Kind{KindVector, KindHashSkipList, KindSkipList, KindHashLinkList}
	for i := 0; i < 200; i++ {
		h.Swap(New(kinds[i%len(kinds)], 0))
	}
	close(stop)
	wg.Wait()
}
