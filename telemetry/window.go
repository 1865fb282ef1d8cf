// Package telemetry collects sliding-window operation statistics for the
// adaptive memtable coordinator. The ingestion path records every completed
// operation; the coordinator snapshots the window at report time.
package telemetry

import (
	"fmt"
	"sync"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

// Snapshot is a point-in-time view of the window: the share of each
// operation kind as a percentage (0-100) plus the throughput since the
// previous snapshot. It is immutable once produced.
type Snapshot struct {
	Percentages map[core.OpKind]float64
	Throughput  uint64
}

// Window is a bounded multiset of the most recent operations by kind.
// Record is safe to call concurrently from many ingestion goroutines;
// Snapshot observes the window atomically with respect to Record.
type Window struct {
	mu       sync.Mutex
	ring     []core.OpKind
	counts   map[core.OpKind]int
	capacity int
	head     int // next write position
	length   int
}

// NewWindow creates a window holding up to capacity operations.
func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window capacity must be positive, got %d", capacity)
	}
	return &Window{
		ring:     make([]core.OpKind, capacity),
		counts:   make(map[core.OpKind]int),
		capacity: capacity,
	}, nil
}

// Record adds one completed operation of the given kind. When the window
// is at capacity the oldest operation is evicted and its kind's count
// decremented, dropping the count entry when it reaches zero.
func (w *Window) Record(kind core.OpKind) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.length == w.capacity {
		oldest := w.ring[w.head]
		if c := w.counts[oldest] - 1; c == 0 {
			delete(w.counts, oldest)
		} else {
			w.counts[oldest] = c
		}
		w.length--
	}
	w.ring[w.head] = kind
	w.head = (w.head + 1) % w.capacity
	w.counts[kind]++
	w.length++
}

// Len returns the number of operations currently in the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.length
}

// Snapshot returns the current kind percentages. ok is false when the
// window is empty, in which case there is nothing to report.
func (w *Window) Snapshot() (Snapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.length == 0 {
		return Snapshot{}, false
	}
	pct := make(map[core.OpKind]float64, len(w.counts))
	for kind, count := range w.counts {
		pct[kind] = float64(count) / float64(w.length) * 100.0
	}
	return Snapshot{Percentages: pct}, true
}
