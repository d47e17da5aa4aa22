package timer

import "time"

// Clock provides the current time. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by the standard library.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
