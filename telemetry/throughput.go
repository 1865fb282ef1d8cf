package telemetry

import "sync/atomic"

// Counter accumulates the number of operations completed since the last
// read. Increment is called once per completed operation from any
// goroutine; ReadAndReset is a single atomic exchange, so no increment
// between the read and the reset is lost or double-counted.
type Counter struct {
	n atomic.Uint64
}

// Increment records one completed operation.
func (c *Counter) Increment() {
	c.n.Add(1)
}

// ReadAndReset atomically returns the accumulated count and resets it.
func (c *Counter) ReadAndReset() uint64 {
	return c.n.Swap(0)
}
