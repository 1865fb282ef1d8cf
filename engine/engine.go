// Package engine is the ingestion path of the adaptive storage engine.
// It applies operations to whichever memtable the handle currently
// designates, times every call, and feeds the telemetry window and
// throughput counter consumed by the coordinator.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AlexanderHott/rocksdb-memtable-switching/coordinator"
	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
	"github.com/AlexanderHott/rocksdb-memtable-switching/hooks"
	"github.com/AlexanderHott/rocksdb-memtable-switching/internal/metrics"
	"github.com/AlexanderHott/rocksdb-memtable-switching/memtable"
	"github.com/AlexanderHott/rocksdb-memtable-switching/telemetry"
)

const (
	// DefaultSizeThresholdBytes is the memtable size at which the engine
	// seals it and starts a fresh one.
	DefaultSizeThresholdBytes = 4 * 1024 * 1024 // 4 MiB
	// DefaultWindowCapacity is the telemetry window size.
	DefaultWindowCapacity = 10000
)

// Options configures an Engine.
type Options struct {
	// Kind and Param select the initial memtable strategy.
	Kind  memtable.Kind
	Param int
	// SizeThresholdBytes is the seal threshold. Zero means the default.
	SizeThresholdBytes int64
	// WindowCapacity is the telemetry window size. Zero means the default.
	WindowCapacity int
	// Gate, when non-nil, is set on every seal so the coordinator knows a
	// switch is safe.
	Gate *coordinator.Gate
	// HookManager receives OperationComplete and PostFlushMemtable
	// events. Nil disables event delivery.
	HookManager hooks.HookManager
	Logger      *slog.Logger
}

// Engine owns the memtable handle, telemetry window, and throughput
// counter. Operations may be applied concurrently from many goroutines.
type Engine struct {
	handle  *memtable.Handle
	window  *telemetry.Window
	counter *telemetry.Counter
	hooks   hooks.HookManager
	gate    *coordinator.Gate
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics

	sizeThreshold int64
	sealMu        sync.Mutex
}

// New creates an engine with the configured initial strategy.
func New(opts Options) (*Engine, error) {
	if opts.SizeThresholdBytes <= 0 {
		opts.SizeThresholdBytes = DefaultSizeThresholdBytes
	}
	if opts.WindowCapacity <= 0 {
		opts.WindowCapacity = DefaultWindowCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.HookManager == nil {
		opts.HookManager = hooks.NewHookManager(nil)
	}

	window, err := telemetry.NewWindow(opts.WindowCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry window: %w", err)
	}

	return &Engine{
		handle:        memtable.NewHandle(memtable.New(opts.Kind, opts.Param)),
		window:        window,
		counter:       &telemetry.Counter{},
		hooks:         opts.HookManager,
		gate:          opts.Gate,
		logger:        opts.Logger.With("component", "Engine"),
		tracer:        otel.Tracer("github.com/AlexanderHott/rocksdb-memtable-switching/engine"),
		metrics:       metrics.New(),
		sizeThreshold: opts.SizeThresholdBytes,
	}, nil
}

// WaitReady blocks ingestion until the given startup barrier releases,
// typically the coordinator's handshake barrier. Returns the context
// error if ctx ends first.
func (e *Engine) WaitReady(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle exposes the strategy handle for the coordinator's swap.
func (e *Engine) Handle() *memtable.Handle { return e.handle }

// Window exposes the telemetry window for the coordinator's snapshots.
func (e *Engine) Window() *telemetry.Window { return e.window }

// Counter exposes the throughput counter for the coordinator's reads.
func (e *Engine) Counter() *telemetry.Counter { return e.counter }

// Insert writes a new key-value pair.
func (e *Engine) Insert(ctx context.Context, key, value []byte) {
	start := time.Now()
	mt := e.handle.Load()
	mt.Put(key, value)
	e.complete(ctx, core.OpInsert, start)
	e.maybeSeal(ctx, mt)
}

// Update overwrites an existing key. The write path is identical to
// Insert; the distinction exists for telemetry, mirroring the workload
// file's separate op codes.
func (e *Engine) Update(ctx context.Context, key, value []byte) {
	start := time.Now()
	mt := e.handle.Load()
	mt.Put(key, value)
	e.complete(ctx, core.OpUpdate, start)
	e.maybeSeal(ctx, mt)
}

// PointQuery looks up a single key.
func (e *Engine) PointQuery(ctx context.Context, key []byte) ([]byte, bool) {
	start := time.Now()
	value, found := e.handle.Load().Get(key)
	e.complete(ctx, core.OpPointQuery, start)
	return value, found
}

// RangeQuery iterates [start, end) and returns the number of live keys
// visited.
func (e *Engine) RangeQuery(ctx context.Context, startKey, endKey []byte) int {
	start := time.Now()
	var visited int
	e.handle.Load().Scan(startKey, endKey, func(_, _ []byte) bool {
		visited++
		return true
	})
	e.complete(ctx, core.OpRangeQuery, start)
	return visited
}

// PointDelete tombstones a single key.
func (e *Engine) PointDelete(ctx context.Context, key []byte) {
	start := time.Now()
	mt := e.handle.Load()
	mt.Delete(key)
	e.complete(ctx, core.OpPointDelete, start)
	e.maybeSeal(ctx, mt)
}

// RangeDelete tombstones every live key in [start, end).
func (e *Engine) RangeDelete(ctx context.Context, startKey, endKey []byte) {
	start := time.Now()
	mt := e.handle.Load()
	mt.DeleteRange(startKey, endKey)
	e.complete(ctx, core.OpRangeDelete, start)
	e.maybeSeal(ctx, mt)
}

// complete records one finished operation into the window, the counter,
// the metrics, and the event log. The duration is measured before any
// of the bookkeeping so lock acquisition is not included.
func (e *Engine) complete(ctx context.Context, kind core.OpKind, start time.Time) {
	duration := time.Since(start)
	e.window.Record(kind)
	e.counter.Increment()
	e.metrics.OperationsTotal.WithLabelValues(kind.String()).Inc()
	e.metrics.OperationDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
	e.hooks.Trigger(ctx, hooks.NewOperationCompleteEvent(hooks.OperationCompletePayload{
		Kind:     kind,
		Duration: duration,
	}))
}

// maybeSeal replaces the active memtable with a fresh one of the same
// kind and size hint once it crosses the size threshold, then fires the
// flush gate. Sealed data is handed off here in a full engine;
// persistence is out of scope for this one, so the sealed memtable is
// dropped after the event.
func (e *Engine) maybeSeal(ctx context.Context, mt memtable.Memtable) {
	if mt.SizeBytes() < e.sizeThreshold {
		return
	}

	e.sealMu.Lock()
	defer e.sealMu.Unlock()

	// The replacement is conditional: if a strategy switch (or an
	// earlier seal) already retired this memtable, that writer wins and
	// there is nothing left to seal.
	fresh := memtable.New(mt.Kind(), mt.Param())
	if !e.handle.CompareAndSwap(mt, fresh) {
		return
	}

	_, span := e.tracer.Start(ctx, "Engine.sealMemtable")
	defer span.End()
	span.SetAttributes(
		attribute.String("memtable.kind", mt.Kind().String()),
		attribute.Int64("memtable.size_bytes", mt.SizeBytes()),
	)

	if e.gate != nil {
		e.gate.Set()
	}
	e.metrics.MemtableSealsTotal.Inc()
	e.logger.Info("Sealed memtable",
		"kind", mt.Kind().String(),
		"entries", mt.Len(),
		"size_bytes", mt.SizeBytes(),
	)
	e.hooks.Trigger(ctx, hooks.NewPostFlushMemtableEvent(hooks.PostFlushMemtablePayload{
		Strategy:   mt.Kind().String(),
		NumEntries: mt.Len(),
		SizeBytes:  mt.SizeBytes(),
	}))
}
