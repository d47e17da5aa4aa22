package domain

// Status is the session-level state shown to the user.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusPaused
	StatusFinished
)

// String returns a machine-friendly status name.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Label returns the user-facing status text.
func (s Status) Label() string {
	switch s {
	case StatusRunning:
		return "Running..."
	case StatusPaused:
		return "Paused"
	case StatusFinished:
		return "Time's up!"
	default:
		return "Ready"
	}
}

// CommandType enumerates the control commands a user can issue.
type CommandType int

const (
	CommandStart CommandType = iota
	CommandPause
	CommandReset
	CommandSetDuration
)

// String returns a human-readable command name.
func (c CommandType) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandPause:
		return "pause"
	case CommandReset:
		return "reset"
	case CommandSetDuration:
		return "set-duration"
	default:
		return "unknown"
	}
}

// Command is one user intent bound for the backend. Minutes is only
// meaningful for CommandSetDuration.
type Command struct {
	Type    CommandType
	Minutes int
}

// Seconds returns the duration payload converted for the backend.
func (c Command) Seconds() int {
	return c.Minutes * 60
}
