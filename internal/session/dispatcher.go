package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/view"
)

// Result is the outcome of one dispatched command.
type Result struct {
	Command  domain.Command
	Snapshot domain.TimerSnapshot
	// Err is set when the command itself failed. Nothing was refreshed.
	Err error
	// RefreshErr is set when the command succeeded but the follow-up
	// snapshot fetch did not.
	RefreshErr error
}

// Dispatcher translates commands into backend calls. Each Dispatch issues
// exactly one command call and, on success, exactly one state fetch. It
// never retries.
//
// The in-flight set (Acquire/Release/Mask) belongs to the controller loop
// and must only be touched from it; Dispatch itself is safe from any
// goroutine.
type Dispatcher struct {
	backend  domain.Backend
	log      *logger.Logger
	timeout  time.Duration
	inflight map[domain.CommandType]bool
}

// NewDispatcher creates a dispatcher that bounds every round trip by timeout.
func NewDispatcher(backend domain.Backend, log *logger.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		backend:  backend,
		log:      log,
		timeout:  timeout,
		inflight: make(map[domain.CommandType]bool),
	}
}

// Acquire marks a command type as in flight. It returns false if one is
// already pending, in which case the caller must drop the command.
func (d *Dispatcher) Acquire(t domain.CommandType) bool {
	if d.inflight[t] {
		return false
	}
	d.inflight[t] = true
	return true
}

// Release clears the in-flight mark for a command type.
func (d *Dispatcher) Release(t domain.CommandType) {
	delete(d.inflight, t)
}

// InFlight reports whether a command of the given type is pending.
func (d *Dispatcher) InFlight(t domain.CommandType) bool {
	return d.inflight[t]
}

// Mask disables the controls whose commands are in flight.
func (d *Dispatcher) Mask(st view.State) view.State {
	if d.inflight[domain.CommandStart] {
		st.Buttons.Start = false
	}
	if d.inflight[domain.CommandPause] {
		st.Buttons.Pause = false
	}
	if d.inflight[domain.CommandReset] {
		st.Buttons.Reset = false
	}
	st.Busy = d.inflight[domain.CommandSetDuration]
	return st
}

// Dispatch runs one command against the backend and refreshes the snapshot.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.Command) Result {
	res := Result{Command: cmd}

	if err := d.call(ctx, cmd); err != nil {
		res.Err = fmt.Errorf("%s: %w", cmd.Type, err)
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	snap, err := d.backend.GetState(fetchCtx)
	if err != nil {
		res.RefreshErr = fmt.Errorf("refresh after %s: %w", cmd.Type, err)
		return res
	}
	res.Snapshot = snap
	return res
}

func (d *Dispatcher) call(ctx context.Context, cmd domain.Command) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	d.log.Debug("dispatching %s", cmd.Type)

	switch cmd.Type {
	case domain.CommandStart:
		return d.backend.Start(callCtx)
	case domain.CommandPause:
		return d.backend.Pause(callCtx)
	case domain.CommandReset:
		return d.backend.Reset(callCtx)
	case domain.CommandSetDuration:
		if cmd.Minutes <= 0 {
			return domain.ErrInvalidDuration
		}
		return d.backend.SetDuration(callCtx, cmd.Seconds())
	default:
		return domain.ErrUnknownCommand
	}
}
