// Package domain defines the core types and interfaces for the timer client.
// All other packages depend on domain; domain depends on nothing.
package domain

import "time"

// TimerSnapshot is a point-in-time copy of the backend timer state.
// It is fetched, projected and discarded; the client never patches one.
type TimerSnapshot struct {
	TotalSeconds     int  `json:"total_seconds"`
	RemainingSeconds int  `json:"remaining_seconds"`
	IsRunning        bool `json:"is_running"`
	IsPaused         bool `json:"is_paused"`
}

// Finished reports whether the countdown has reached zero. The flags are
// not consulted: zero remaining means finished regardless.
func (s TimerSnapshot) Finished() bool {
	return s.RemainingSeconds <= 0
}

// Counting reports whether the backend is actively counting down.
func (s TimerSnapshot) Counting() bool {
	return s.IsRunning && !s.IsPaused && s.RemainingSeconds > 0
}

// Terminal returns the snapshot as it looks once the session has finished.
func (s TimerSnapshot) Terminal() TimerSnapshot {
	return TimerSnapshot{TotalSeconds: s.TotalSeconds}
}

// TimerRecord is the backend's private bookkeeping for the single timer.
// Remaining holds the seconds left at the moment of the last resume; the
// live value is derived from ResumedAt while the timer is counting.
type TimerRecord struct {
	Total     int
	Remaining int
	Running   bool
	Paused    bool
	ResumedAt time.Time
}

// RemainingAt returns the seconds left at the given instant.
func (r TimerRecord) RemainingAt(now time.Time) int {
	if !r.Running || r.Paused || r.ResumedAt.IsZero() {
		return r.Remaining
	}
	elapsed := int(now.Sub(r.ResumedAt) / time.Second)
	if elapsed >= r.Remaining {
		return 0
	}
	return r.Remaining - elapsed
}

// SnapshotAt projects the record into the snapshot a client would see.
// A record whose countdown has run out reports as finished even before the
// backend monitor has recorded the transition.
func (r TimerRecord) SnapshotAt(now time.Time) TimerSnapshot {
	remaining := r.RemainingAt(now)
	snap := TimerSnapshot{
		TotalSeconds:     r.Total,
		RemainingSeconds: remaining,
		IsRunning:        r.Running,
		IsPaused:         r.Paused,
	}
	if r.Running && !r.Paused && remaining == 0 {
		snap.IsRunning = false
	}
	return snap
}
