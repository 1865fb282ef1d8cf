package memtable

import "sync"

// Handle is the single swappable reference to the active memtable. The
// ingestion path loads it on every operation (many readers). The
// coordinator replaces it unconditionally with Swap; the engine's seal
// path replaces it with CompareAndSwap so a seal can never overwrite a
// strategy switch that landed after the sealer loaded its memtable. A
// caller always observes a fully constructed memtable: construction
// happens before the replacement, and the critical section is just the
// reference exchange.
type Handle struct {
	mu     sync.RWMutex
	active Memtable
}

// NewHandle creates a handle with the given initial memtable.
func NewHandle(initial Memtable) *Handle {
	return &Handle{active: initial}
}

// Load returns the currently active memtable.
func (h *Handle) Load() Memtable {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

// Swap replaces the active memtable and returns the previous one.
// Operations mid-flight against the previous memtable run to completion
// against that instance; every Load after Swap returns observes next.
func (h *Handle) Swap(next Memtable) Memtable {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.active
	h.active = next
	return prev
}

// CompareAndSwap installs next only if expected is still the active
// memtable and reports whether the exchange happened. A false return
// means another writer replaced the memtable after the caller loaded
// expected; the replacement wins.
func (h *Handle) CompareAndSwap(expected, next Memtable) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active != expected {
		return false
	}
	h.active = next
	return true
}
