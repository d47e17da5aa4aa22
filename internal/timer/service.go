// Package timer implements the authoritative countdown engine that the
// client mirrors. It owns the single source of truth for remaining time,
// advances it against a clock and pushes a completion signal when a
// session runs out.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Compile-time interface check.
var _ domain.Backend = (*Service)(nil)

// Option configures the service.
type Option func(*Service)

// WithTickInterval sets how often the monitor checks for completion.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		s.tickInterval = d
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// Service is the backend timer. Commands mutate the stored record under a
// single lock; a background monitor detects completion and notifies
// subscribers exactly once per finished session.
type Service struct {
	store        domain.StateStore
	log          *logger.Logger
	clock        Clock
	tickInterval time.Duration

	mu sync.Mutex // serializes load-modify-save on the record

	subMu  sync.Mutex
	subs   []chan struct{}
	closed bool

	loopMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a timer service over the given store.
func New(store domain.StateStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		log:          log,
		clock:        SystemClock,
		tickInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launch begins the background completion monitor. Non-blocking.
func (s *Service) Launch(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	if s.running {
		s.log.Warn("timer service already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(childCtx, s.done)

	s.log.Info("timer service started (tick=%s)", s.tickInterval)
}

// Shutdown stops the monitor and closes every subscription channel.
func (s *Service) Shutdown() {
	s.loopMu.Lock()
	if s.running {
		s.cancel()
		<-s.done
		s.running = false
		s.log.Info("timer service stopped")
	}
	s.loopMu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Subscribe registers for completion signals.
func (s *Service) Subscribe() <-chan struct{} {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	ch := make(chan struct{}, 1)
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Start begins counting. A paused timer resumes; a finished timer restarts
// from its full duration; a running timer is left alone.
func (s *Service) Start(ctx context.Context) error {
	_, err := s.update(ctx, "start", func(rec *domain.TimerRecord, now time.Time) bool {
		switch {
		case !rec.Running:
			if rec.Remaining <= 0 {
				rec.Remaining = rec.Total
			}
			rec.Running = true
			rec.Paused = false
			rec.ResumedAt = now
		case rec.Paused:
			rec.Paused = false
			rec.ResumedAt = now
		}
		return false
	})
	return err
}

// Pause freezes a counting timer. Pausing anything else is a no-op. A
// timer that has already run out finishes instead of pausing at zero.
func (s *Service) Pause(ctx context.Context) error {
	finished, err := s.update(ctx, "pause", func(rec *domain.TimerRecord, now time.Time) bool {
		if !rec.Running || rec.Paused {
			return false
		}
		rec.Remaining = rec.RemainingAt(now)
		rec.ResumedAt = time.Time{}
		if rec.Remaining == 0 {
			finish(rec)
			return true
		}
		rec.Paused = true
		return false
	})
	if finished {
		s.emit()
	}
	return err
}

// Reset stops the timer and restores the full duration.
func (s *Service) Reset(ctx context.Context) error {
	_, err := s.update(ctx, "reset", func(rec *domain.TimerRecord, _ time.Time) bool {
		rec.Running = false
		rec.Paused = false
		rec.Remaining = rec.Total
		rec.ResumedAt = time.Time{}
		return false
	})
	return err
}

// SetDuration sets both total and remaining time. It is accepted in any
// state; a counting timer keeps counting from the new value.
func (s *Service) SetDuration(ctx context.Context, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("set duration %d: %w", seconds, domain.ErrInvalidDuration)
	}
	_, err := s.update(ctx, "set duration", func(rec *domain.TimerRecord, now time.Time) bool {
		rec.Total = seconds
		rec.Remaining = seconds
		if rec.Running && !rec.Paused {
			rec.ResumedAt = now
		}
		return false
	})
	return err
}

// GetState returns the current snapshot. It never mutates the record; the
// monitor alone records completion.
func (s *Service) GetState(ctx context.Context) (domain.TimerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		return domain.TimerSnapshot{}, fmt.Errorf("get state: %w", err)
	}
	return rec.SnapshotAt(s.clock.Now()), nil
}

// update runs fn against the stored record and saves the result. fn reports
// whether the mutation finished the session.
func (s *Service) update(ctx context.Context, op string, fn func(*domain.TimerRecord, time.Time) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: loading record: %w", op, err)
	}
	before := rec
	finished := fn(&rec, s.clock.Now())
	if rec == before {
		return finished, nil
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return false, fmt.Errorf("%s: saving record: %w", op, err)
	}
	s.log.Debug("%s -> total=%d remaining=%d running=%t paused=%t", op, rec.Total, rec.Remaining, rec.Running, rec.Paused)
	return finished, nil
}

// loop is the main tick loop.
func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs one monitor cycle: record completion and notify.
func (s *Service) check(ctx context.Context) {
	finished, err := s.update(ctx, "monitor", func(rec *domain.TimerRecord, now time.Time) bool {
		if !rec.Running || rec.Paused || rec.RemainingAt(now) > 0 {
			return false
		}
		finish(rec)
		return true
	})
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("monitor: %v", err)
		}
		return
	}
	if finished {
		s.log.Info("timer finished")
		s.emit()
	}
}

// emit delivers one completion signal to every subscriber without blocking.
func (s *Service) emit() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
			s.log.Warn("subscriber still holds an unread completion signal, dropping")
		}
	}
}

func finish(rec *domain.TimerRecord) {
	rec.Remaining = 0
	rec.Running = false
	rec.Paused = false
	rec.ResumedAt = time.Time{}
}
