package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrInvalidDuration = errors.New("duration must be a positive whole number of minutes")
	ErrClosed          = errors.New("controller is not running")
	ErrUnknownCommand  = errors.New("unknown command")
)
