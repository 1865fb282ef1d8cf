package listeners

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/AlexanderHott/rocksdb-memtable-switching/hooks"
)

// loggedEvent is one entry in the persisted benchmark event log. The
// shape matches the offline analysis tooling: a type tag plus a data
// object.
type loggedEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type operationCompleteData struct {
	Duration int64  `json:"duration"`
	OpType   string `json:"opType"`
}

type memtableSwitchData struct {
	Memtable string `json:"memtable"`
}

// EventLogListener accumulates an append-only, ordered log of completed
// operations and accepted memtable switches, serialized as a JSON list
// for offline analysis. Every completed operation and every accepted
// switch produces exactly one entry, in occurrence order.
type EventLogListener struct {
	mu     sync.Mutex
	events []loggedEvent
	logger *slog.Logger
}

// NewEventLogListener creates a listener collecting benchmark events.
func NewEventLogListener(logger *slog.Logger) *EventLogListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EventLogListener{
		logger: logger.With("component", "EventLogListener"),
	}
}

// OnEvent appends one log entry for OperationComplete and MemtableSwitch
// events; other events are ignored.
func (l *EventLogListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	switch event.Type() {
	case hooks.EventOperationComplete:
		payload, ok := event.Payload().(hooks.OperationCompletePayload)
		if !ok {
			l.logger.Error("Received OperationComplete event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
			return nil
		}
		l.append(loggedEvent{
			Type: "OperationCompleteEvent",
			Data: operationCompleteData{Duration: payload.Duration.Nanoseconds(), OpType: payload.Kind.String()},
		})
	case hooks.EventMemtableSwitch:
		payload, ok := event.Payload().(hooks.MemtableSwitchPayload)
		if !ok {
			l.logger.Error("Received MemtableSwitch event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
			return nil
		}
		l.append(loggedEvent{
			Type: "MemtableSwitchEvent",
			Data: memtableSwitchData{Memtable: payload.Strategy},
		})
	}
	return nil
}

func (l *EventLogListener) append(ev loggedEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

// Len returns the number of events collected so far.
func (l *EventLogListener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// WriteTo serializes the collected events as an indented JSON list.
func (l *EventLogListener) WriteTo(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := l.events
	if events == nil {
		// An empty log is still a valid JSON list.
		events = []loggedEvent{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

// WriteFile writes the event log to the given path.
func (l *EventLogListener) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create event log file %s: %w", path, err)
	}
	defer f.Close()
	if err := l.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write event log: %w", err)
	}
	return nil
}

// Priority defines the execution order.
func (l *EventLogListener) Priority() int { return 10 }

// IsAsync keeps event ordering strict: entries must appear in the order
// their operations completed.
func (l *EventLogListener) IsAsync() bool { return false }
