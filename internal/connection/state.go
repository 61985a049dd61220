package connection

// State is the lifecycle state of the transport session. Exactly one
// instance exists per Manager; only the Manager mutates it.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusChange describes one state transition.
type StatusChange struct {
	Old State
	New State
	Err error // cause of the transition, if any
}
