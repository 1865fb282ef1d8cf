// Package hooks provides the event system through which the engine and
// coordinator announce lifecycle milestones: completed operations,
// memtable seals, and accepted strategy switches. Listeners run in
// priority order; a listener may opt into asynchronous delivery.
package hooks

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AlexanderHott/rocksdb-memtable-switching/core"
)

// EventType defines the type of a hook event.
type EventType string

const (
	// EventOperationComplete fires after every operation applied through
	// the active memtable.
	EventOperationComplete EventType = "OperationComplete"
	// EventMemtableSwitch fires after the coordinator accepts a decision
	// and swaps the active memtable.
	EventMemtableSwitch EventType = "MemtableSwitch"
	// EventPostFlushMemtable fires after the engine seals a full memtable
	// and replaces it with a fresh one.
	EventPostFlushMemtable EventType = "PostFlushMemtable"
)

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	Trigger(ctx context.Context, event HookEvent)
	// Stop waits for all asynchronous listeners to complete.
	Stop()
}

// HookEvent is the interface that all event objects implement.
type HookEvent interface {
	Type() EventType
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// OperationCompletePayload carries the kind and elapsed time of one
// completed operation.
type OperationCompletePayload struct {
	Kind     core.OpKind
	Duration time.Duration
}

// NewOperationCompleteEvent creates an event for a completed operation.
func NewOperationCompleteEvent(payload OperationCompletePayload) HookEvent {
	return &BaseEvent{eventType: EventOperationComplete, payload: payload}
}

// MemtableSwitchPayload carries the identity of the newly activated
// strategy.
type MemtableSwitchPayload struct {
	Strategy string
}

// NewMemtableSwitchEvent creates an event for an accepted strategy swap.
func NewMemtableSwitchEvent(payload MemtableSwitchPayload) HookEvent {
	return &BaseEvent{eventType: EventMemtableSwitch, payload: payload}
}

// PostFlushMemtablePayload describes the memtable that was just sealed.
type PostFlushMemtablePayload struct {
	Strategy   string
	NumEntries int
	SizeBytes  int64
}

// NewPostFlushMemtableEvent creates an event for a sealed memtable.
func NewPostFlushMemtableEvent(payload PostFlushMemtablePayload) HookEvent {
	return &BaseEvent{eventType: EventPostFlushMemtable, payload: payload}
}

// HookListener defines the interface for components listening to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event fires.
	// Errors are logged; they never affect the main operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers run first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously.
	IsAsync() bool
}

// registration pairs a listener with the priority it reported when it
// was registered, so a listener whose Priority() is not stable cannot
// reorder the slice after insertion.
type registration struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
// Listener slices are kept sorted at registration time, so Trigger is a
// plain in-order walk.
type DefaultHookManager struct {
	mu        sync.RWMutex
	byEvent   map[EventType][]registration
	asyncWork sync.WaitGroup
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		byEvent: make(map[EventType][]registration),
		logger:  logger,
	}
}

// Register adds a listener for an event type, maintaining priority order.
// Listeners with equal priority run in registration order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := m.byEvent[eventType]
	reg := registration{listener: listener, priority: listener.Priority()}
	idx := sort.Search(len(regs), func(i int) bool {
		return regs[i].priority > reg.priority
	})
	regs = append(regs, registration{})
	copy(regs[idx+1:], regs[idx:])
	regs[idx] = reg
	m.byEvent[eventType] = regs
}

// Trigger fires all registered listeners for an event in priority order.
// Synchronous listeners run inline; asynchronous ones are tracked so
// Stop can drain them.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) {
	m.mu.RLock()
	regs := m.byEvent[event.Type()]
	m.mu.RUnlock()

	for _, reg := range regs {
		if reg.listener.IsAsync() {
			m.asyncWork.Add(1)
			go m.deliver(ctx, event, reg)
			continue
		}
		if err := reg.listener.OnEvent(ctx, event); err != nil {
			m.logger.Error("Error from hook listener", "event", event.Type(), "priority", reg.priority, "error", err)
		}
	}
}

func (m *DefaultHookManager) deliver(ctx context.Context, event HookEvent, reg registration) {
	defer m.asyncWork.Done()
	if err := reg.listener.OnEvent(ctx, event); err != nil {
		m.logger.Error("Error from asynchronous hook listener", "event", event.Type(), "priority", reg.priority, "error", err)
	}
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.asyncWork.Wait()
}
