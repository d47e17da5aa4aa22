package domain

// IntentType classifies what the user typed or said.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentStart
	IntentPause
	IntentReset
	IntentSetDuration
	IntentStatus
	IntentHelp
	IntentQuit
	IntentDismiss
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentStart:
		return "start"
	case IntentPause:
		return "pause"
	case IntentReset:
		return "reset"
	case IntentSetDuration:
		return "set_duration"
	case IntentStatus:
		return "status"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	case IntentDismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Minutes int    // set for IntentSetDuration
	Payload string // raw input for IntentUnknown
}

// Command maps a control intent to the command it dispatches. The second
// return is false for intents that never reach the backend.
func (i Intent) Command() (Command, bool) {
	switch i.Type {
	case IntentStart:
		return Command{Type: CommandStart}, true
	case IntentPause:
		return Command{Type: CommandPause}, true
	case IntentReset:
		return Command{Type: CommandReset}, true
	case IntentSetDuration:
		return Command{Type: CommandSetDuration, Minutes: i.Minutes}, true
	default:
		return Command{}, false
	}
}
