package daemon

// State is the manager's lifecycle stage.
type State int

const (
	StateRunning State = iota
	// StateShuttingDown accepts no new commands or notifications but
	// keeps draining the queue and collecting worker reports.
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
