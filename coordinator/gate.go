package coordinator

import "sync/atomic"

// Gate is the flush precondition for a strategy switch. The engine sets
// it every time a memtable is sealed; the coordinator consumes it when a
// switch is accepted. Switching while the active memtable still buffers
// data laid out for the old structure is a correctness hazard, so a
// switch is deferred until the gate has fired.
type Gate struct {
	fired atomic.Bool
}

// Set marks that a seal has occurred since the last switch.
func (g *Gate) Set() {
	g.fired.Store(true)
}

// Ready reports whether a seal has occurred since the last switch.
func (g *Gate) Ready() bool {
	return g.fired.Load()
}

// Clear consumes the gate after an accepted switch.
func (g *Gate) Clear() {
	g.fired.Store(false)
}
