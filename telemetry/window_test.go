package telemetry

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

func TestNewWindow_RejectsDegenerateCapacity(t *testing.T) {
	_, err := NewWindow(0)
	require.Error(t, err)
	_, err = NewWindow(-1)
	require.Error(t, err)
}

func TestWindow_EmptySnapshot(t *testing.T) {
	w, err := NewWindow(4)
	require.NoError(t, err)

	_, ok := w.Snapshot()
	assert.False(t, ok, "empty window should report nothing")
	assert.Equal(t, 0, w.Len())
}

func TestWindow_CountsMatchLength(t *testing.T) {
	w, err := NewWindow(8)
	require.NoError(t, err)

	kinds := []core.OpKind{
		core.OpInsert, core.OpInsert, core.OpUpdate, core.OpPointQuery,
		core.OpRangeQuery, core.OpPointDelete, core.OpRangeDelete,
		core.OpInsert, core.OpInsert, core.OpInsert, core.OpUpdate,
	}
	for _, k := range kinds {
		w.Record(k)

		w.mu.Lock()
		sum := 0
		for _, c := range w.counts {
			sum += c
		}
		require.Equal(t, w.length, sum, "sum of counts must equal window length")
		require.LessOrEqual(t, w.length, w.capacity)
		w.mu.Unlock()
	}
}

func TestWindow_EvictsOldestAtCapacity(t *testing.T) {
	w, err := NewWindow(4)
	require.NoError(t, err)

	// Fill: Insert, Insert, PointQuery, Insert.
	w.Record(core.OpInsert)
	w.Record(core.OpInsert)
	w.Record(core.OpPointQuery)
	w.Record(core.OpInsert)
	require.Equal(t, 4, w.Len())

	// The 5th record evicts the first Insert.
	w.Record(core.OpUpdate)
	require.Equal(t, 4, w.Len())

	snap, ok := w.Snapshot()
	require.True(t, ok)
	assert.InDelta(t, 50.0, snap.Percentages[core.OpInsert], 0.01)
	assert.InDelta(t, 25.0, snap.Percentages[core.OpPointQuery], 0.01)
	assert.InDelta(t, 25.0, snap.Percentages[core.OpUpdate], 0.01)
}

func TestWindow_EvictionRemovesDrainedKind(t *testing.T) {
	w, err := NewWindow(2)
	require.NoError(t, err)

	w.Record(core.OpRangeDelete)
	w.Record(core.OpInsert)
	w.Record(core.OpInsert) // evicts the only RangeDelete

	snap, ok := w.Snapshot()
	require.True(t, ok)
	_, present := snap.Percentages[core.OpRangeDelete]
	assert.False(t, present, "a kind with zero count must not appear in the snapshot")
	assert.InDelta(t, 100.0, snap.Percentages[core.OpInsert], 0.01)
}

func TestWindow_PercentagesSumTo100(t *testing.T) {
	w, err := NewWindow(100)
	require.NoError(t, err)

	for i := 0; i < 97; i++ {
		w.Record(core.OpKinds[i%len(core.OpKinds)])
	}

	snap, ok := w.Snapshot()
	require.True(t, ok)
	sum := 0.0
	for _, pct := range snap.Percentages {
		sum += pct
	}
	assert.True(t, math.Abs(sum-100.0) < 0.01, "percentages should sum to 100, got %f", sum)
}

func TestWindow_ConcurrentRecord(t *testing.T) {
	const (
		goroutines = 8
		perG       = 1000
	)
	w, err := NewWindow(goroutines * perG)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			kind := core.OpKinds[g%len(core.OpKinds)]
			for i := 0; i < perG; i++ {
				w.Record(kind)
			}
		}(g)
	}
	wg.Wait()

	// No record may be lost or double-counted regardless of interleaving.
	require.Equal(t, goroutines*perG, w.Len())
	snap, ok := w.Snapshot()
	require.True(t, ok)
	sum := 0.0
	for _, pct := range snap.Percentages {
		sum += pct
	}
	assert.InDelta(t, 100.0, sum, 0.01)
}

func TestWindow_SnapshotDuringConcurrentRecords(t *testing.T) {
	w, err := NewWindow(64)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			w.Record(core.OpInsert)
		}
	}()

	for i := 0; i < 200; i++ {
		if snap, ok := w.Snapshot(); ok {
			sum := 0.0
			for _, pct := range snap.Percentages {
				sum += pct
			}
			require.InDelta(t, 100.0, sum, 0.01, "snapshot must never observe a mid-mutation window")
		}
	}
	<-done
}
