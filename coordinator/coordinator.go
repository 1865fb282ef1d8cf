// Package coordinator runs the adaptive-strategy session: a startup
// handshake with the external decision process, a periodic telemetry
// report/decide cycle, and the synchronized hot-swap of the active
// memtable.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AlexanderHott/rocksdb-memtable-switching/hooks"
	"github.com/AlexanderHott/rocksdb-memtable-switching/internal/metrics"
	"github.com/AlexanderHott/rocksdb-memtable-switching/memtable"
	"github.com/AlexanderHott/rocksdb-memtable-switching/negotiation"
	"github.com/AlexanderHott/rocksdb-memtable-switching/telemetry"
)

const (
	// DefaultPollInterval is the sleep between report cycles.
	DefaultPollInterval = 1 * time.Second
	// DefaultWatermark is the minimum number of recorded operations
	// before a report is worth sending.
	DefaultWatermark = 5000
	// DefaultReceiveTimeout bounds the blocking wait for a decision.
	DefaultReceiveTimeout = 30 * time.Second
)

// Options tunes the coordinator loop.
type Options struct {
	// PollInterval is the sleep between cycles. It also bounds how long
	// the loop takes to observe a stop request. Zero means the default.
	PollInterval time.Duration
	// Watermark is the minimum window activity before a report is sent.
	// Zero means the default.
	Watermark int
	// ReceiveTimeout bounds the wait for a decision message. A timed-out
	// cycle is abandoned and retried on the next interval. Zero means the
	// default.
	ReceiveTimeout time.Duration
	// Gate, when non-nil, defers switches until the engine has sealed a
	// memtable since the last accepted switch.
	Gate *Gate
}

// Coordinator owns the negotiation channel and performs the periodic
// report/decide/apply cycle against the memtable handle. Exactly one
// loop goroutine runs per session.
type Coordinator struct {
	channel *negotiation.Channel
	window  *telemetry.Window
	counter *telemetry.Counter
	handle  *memtable.Handle
	hooks   hooks.HookManager
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    Options

	state  atomic.Int32
	ready  chan struct{}
	done   chan struct{}
	runErr error
}

// New creates a coordinator for one negotiation session.
func New(channel *negotiation.Channel, window *telemetry.Window, counter *telemetry.Counter, handle *memtable.Handle, hookMgr hooks.HookManager, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if hookMgr == nil {
		hookMgr = hooks.NewHookManager(nil)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Watermark <= 0 {
		opts.Watermark = DefaultWatermark
	}
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = DefaultReceiveTimeout
	}
	return &Coordinator{
		channel: channel,
		window:  window,
		counter: counter,
		handle:  handle,
		hooks:   hookMgr,
		logger:  logger.With("component", "Coordinator"),
		metrics: metrics.New(),
		opts:    opts,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// State returns the current session state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// Ready returns the startup barrier. It is closed exactly once, when the
// handshake acknowledgment arrives; ingestion must not begin before
// then.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Start performs the syn/ack handshake and launches the decision loop.
// The ack wait is bounded by ReceiveTimeout: a decider that connects but
// never answers fails the handshake rather than hanging the caller. A
// handshake failure is fatal and returned; the session is closed, the
// barrier never releases, and Wait returns immediately. Cancelling ctx
// stops the loop cooperatively: the next cycle sends the shutdown
// message and closes the channel.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.State() != StateInit {
		return fmt.Errorf("coordinator already started (state %s)", c.State())
	}

	c.logger.Info("Sending handshake", "message", negotiation.PayloadSyn)
	c.setState(StateAwaitingAck)
	if err := c.channel.Send(negotiation.MessageSyn, negotiation.PayloadSyn); err != nil {
		c.fail(fmt.Errorf("handshake send failed: %w", err))
		close(c.done)
		return c.runErr
	}

	msgType, payload, err := c.channel.Recv(c.opts.ReceiveTimeout)
	if err != nil {
		c.fail(fmt.Errorf("handshake receive failed: %w", err))
		close(c.done)
		return c.runErr
	}
	// Any acknowledgment releases the barrier; content is ignored beyond
	// "received".
	c.logger.Info("Handshake acknowledged", "type", msgType.String(), "payload", payload)

	c.setState(StateRunning)
	close(c.ready)

	go c.run(ctx)
	return nil
}

// Wait blocks until the session has terminated and returns its terminal
// error: nil after a clean shutdown, the transport error otherwise.
func (c *Coordinator) Wait() error {
	<-c.done
	return c.runErr
}

// fail records a fatal transport error and closes the session. This is
// distinct from a normal shutdown: no shutdown message is sent over a
// broken channel. The done channel is closed by the loop's defer, or by
// Start directly when the loop never launched.
func (c *Coordinator) fail(err error) {
	c.logger.Error("Session failed", "error", err)
	c.runErr = err
	c.channel.Close()
	c.setState(StateClosed)
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case <-ticker.C:
			if !c.cycle(ctx) {
				// Fatal transport failure; fail() already closed the session.
				return
			}
		}
	}
}

// cycle runs one report/decide/apply iteration. It returns false only on
// a fatal transport failure.
func (c *Coordinator) cycle(ctx context.Context) bool {
	if n := c.window.Len(); n < c.opts.Watermark {
		c.logger.Debug("Skipping cycle, below activity watermark", "recorded", n, "watermark", c.opts.Watermark)
		return true
	}
	if c.opts.Gate != nil && !c.opts.Gate.Ready() {
		c.logger.Debug("Skipping cycle, no memtable seal since last switch")
		return true
	}

	snap, ok := c.window.Snapshot()
	if !ok {
		// Nothing to report; not an error.
		return true
	}
	snap.Throughput = c.counter.ReadAndReset()

	if err := c.channel.Send(negotiation.MessageTelemetry, negotiation.EncodeTelemetry(snap)); err != nil {
		c.fail(err)
		return false
	}
	if err := c.channel.Send(negotiation.MessageThroughput, negotiation.EncodeThroughput(snap.Throughput)); err != nil {
		c.fail(err)
		return false
	}
	c.metrics.ReportsSentTotal.Inc()

	msgType, payload, err := c.channel.Recv(c.opts.ReceiveTimeout)
	if err != nil {
		if negotiation.IsTimeout(err) {
			c.logger.Warn("No decision before deadline, will retry next cycle", "timeout", c.opts.ReceiveTimeout)
			return true
		}
		c.fail(err)
		return false
	}
	if msgType != negotiation.MessageDecision {
		c.logger.Warn("Unexpected message while awaiting decision, cycle abandoned", "type", msgType.String(), "payload", payload)
		c.metrics.DecisionErrorsTotal.Inc()
		return true
	}

	decision, err := negotiation.ParseDecision(payload)
	if err != nil {
		// Unknown identifier or malformed payload: the previous strategy
		// stays active.
		c.logger.Warn("Rejected decision", "payload", payload, "error", err)
		c.metrics.DecisionErrorsTotal.Inc()
		return true
	}

	c.apply(ctx, decision)
	return true
}

// apply constructs the chosen strategy and swaps it in. Construction
// happens before the handle lock is taken so the critical section is
// only the reference replacement.
func (c *Coordinator) apply(ctx context.Context, decision negotiation.Decision) {
	next := memtable.New(decision.Kind, decision.Param)
	prev := c.handle.Swap(next)

	if c.opts.Gate != nil {
		c.opts.Gate.Clear()
	}
	c.metrics.MemtableSwitchesTotal.WithLabelValues(decision.Kind.String()).Inc()
	c.logger.Info("Switched active memtable",
		"from", prev.Kind().String(),
		"to", decision.Kind.String(),
		"param", decision.Param,
	)
	c.hooks.Trigger(ctx, hooks.NewMemtableSwitchEvent(hooks.MemtableSwitchPayload{
		Strategy: decision.Kind.String(),
	}))
}

// shutdown performs the session-end handshake: one shutdown message,
// then the channel is closed. Terminal.
func (c *Coordinator) shutdown() {
	c.setState(StateShuttingDown)
	c.logger.Info("Shutting down session")
	if err := c.channel.Send(negotiation.MessageShutdown, negotiation.PayloadShutdown); err != nil {
		c.logger.Error("Failed to send shutdown message", "error", err)
	}
	if err := c.channel.Close(); err != nil {
		c.logger.Error("Failed to close negotiation channel", "error", err)
	}
	c.setState(StateClosed)
}
