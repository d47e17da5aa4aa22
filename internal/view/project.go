// Package view derives everything the user sees from a timer snapshot.
// Project is pure: the same snapshot always yields the same State, and a
// State is never patched in place.
package view

import (
	"fmt"
	"math"

	"github.com/hammamikhairi/pomo/internal/domain"
)

// Radius of the progress ring in drawing units.
const Radius = 90

// Circumference of the progress ring, 2π·90 rounded as the ring is drawn.
const Circumference = 565.48

// Buttons holds the enablement of the three control buttons.
type Buttons struct {
	Start bool
	Pause bool
	Reset bool
}

// Allows reports whether the button for the given command is enabled.
// Duration presets are always enabled.
func (b Buttons) Allows(c domain.CommandType) bool {
	switch c {
	case domain.CommandStart:
		return b.Start
	case domain.CommandPause:
		return b.Pause
	case domain.CommandReset:
		return b.Reset
	default:
		return true
	}
}

// State is the client view state: a full rendering of one snapshot.
type State struct {
	Minutes  string
	Seconds  string
	Progress float64 // 0 at the start of a session, 1 when finished
	Offset   float64 // ring dash offset, Circumference*(1-Progress)
	Status   domain.Status
	Label    string
	Buttons  Buttons
	// Busy is true while a duration change is in flight.
	Busy bool
}

// Clock returns the "MM:SS" text.
func (s State) Clock() string {
	return s.Minutes + ":" + s.Seconds
}

// Project maps a snapshot to its view state.
func Project(snap domain.TimerSnapshot) State {
	remaining := snap.RemainingSeconds
	if remaining < 0 {
		remaining = 0
	}

	progress := Progress(snap.TotalSeconds, remaining)
	status, buttons := Classify(snap)

	return State{
		Minutes:  fmt.Sprintf("%02d", remaining/60),
		Seconds:  fmt.Sprintf("%02d", remaining%60),
		Progress: progress,
		Offset:   Circumference * (1 - progress),
		Status:   status,
		Label:    status.Label(),
		Buttons:  buttons,
	}
}

// Progress returns the elapsed fraction of the session in [0,1]. A zero
// total has no meaningful progress and reports 0.
func Progress(total, remaining int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(total-remaining) / float64(total)
	return math.Min(1, math.Max(0, p))
}

// Classify picks the status and button layout. Rules are checked in order
// and the first match wins, so a stale paused flag outranks zero remaining.
func Classify(snap domain.TimerSnapshot) (domain.Status, Buttons) {
	idle := Buttons{Start: true, Pause: false, Reset: true}

	switch {
	case snap.IsRunning && !snap.IsPaused:
		return domain.StatusRunning, Buttons{Start: false, Pause: true, Reset: true}
	case snap.IsPaused:
		return domain.StatusPaused, idle
	case snap.Finished():
		return domain.StatusFinished, idle
	default:
		return domain.StatusReady, idle
	}
}
