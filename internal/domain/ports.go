package domain

import "context"

//go:generate mockgen -source=ports.go -destination=../mocks/mock_ports.go -package=mocks

// Backend is the authoritative timer. The client only ever mirrors it.
// Implementations can be in-process or remote; every call is a round trip
// that may fail or time out.
type Backend interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	SetDuration(ctx context.Context, seconds int) error
	GetState(ctx context.Context) (TimerSnapshot, error)
	// Subscribe returns a channel that receives one value per finished
	// session. The channel is closed when the backend shuts down.
	Subscribe() <-chan struct{}
}

// StateStore holds the backend's timer record.
type StateStore interface {
	Load(ctx context.Context) (TimerRecord, error)
	Save(ctx context.Context, rec TimerRecord) error
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers a dialog-style message to the user.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Alerter runs the completion alert path (dialog plus tone).
type Alerter interface {
	Alert(ctx context.Context) error
}
