package coordinator

// State is the coordinator's session lifecycle state. Transitions are
// strictly ordered: Init -> AwaitingAck -> Running -> ShuttingDown ->
// Closed, with Closed terminal.
type State int32

const (
	StateInit State = iota
	StateAwaitingAck
	StateRunning
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateAwaitingAck:
		return "AwaitingAck"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
