package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/storage"
	"github.com/hammamikhairi/pomo/internal/timer"
	"github.com/hammamikhairi/pomo/internal/view"
)

// manualClock only moves when told to.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testBackend wraps the real timer service with call counting, injected
// failures and an optional gate that holds commands. The completion signal
// can be swallowed or handed to the test to push by hand.
type testBackend struct {
	*timer.Service

	mu     sync.Mutex
	calls  map[string]int
	fail   map[string]error
	gate    chan struct{}
	silent  bool
	signals chan struct{}
}

func (b *testBackend) record(op string) error {
	b.mu.Lock()
	b.calls[op]++
	err := b.fail[op]
	gate := b.gate
	b.mu.Unlock()

	if gate != nil && op != "get_state" {
		<-gate
	}
	return err
}

func (b *testBackend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *testBackend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[op] = err
}

func (b *testBackend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
}

func (b *testBackend) Release() {
	b.mu.Lock()
	gate := b.gate
	b.gate = nil
	b.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (b *testBackend) Start(ctx context.Context) error {
	if err := b.record("start"); err != nil {
		return err
	}
	return b.Service.Start(ctx)
}

func (b *testBackend) Pause(ctx context.Context) error {
	if err := b.record("pause"); err != nil {
		return err
	}
	return b.Service.Pause(ctx)
}

func (b *testBackend) Reset(ctx context.Context) error {
	if err := b.record("reset"); err != nil {
		return err
	}
	return b.Service.Reset(ctx)
}

func (b *testBackend) SetDuration(ctx context.Context, seconds int) error {
	if err := b.record("set_duration"); err != nil {
		return err
	}
	return b.Service.SetDuration(ctx, seconds)
}

func (b *testBackend) GetState(ctx context.Context) (domain.TimerSnapshot, error) {
	if err := b.record("get_state"); err != nil {
		return domain.TimerSnapshot{}, err
	}
	return b.Service.GetState(ctx)
}

func (b *testBackend) Subscribe() <-chan struct{} {
	if b.signals != nil {
		return b.signals
	}
	if b.silent {
		return make(chan struct{})
	}
	return b.Service.Subscribe()
}

// recorder collects rendered states.
type recorder struct {
	mu     sync.Mutex
	states []view.State
}

func (r *recorder) Render(st view.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) Last() (view.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return view.State{}, false
	}
	return r.states[len(r.states)-1], true
}

// countingAlerter counts alert invocations.
type countingAlerter struct {
	mu    sync.Mutex
	count int
}

func (a *countingAlerter) Alert(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.count++
	return nil
}

func (a *countingAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

type fixture struct {
	ctrl    *Controller
	backend *testBackend
	clock   *manualClock
	render  *recorder
	alerts  *countingAlerter
}

type fixtureConfig struct {
	totalSeconds int
	silent       bool
	manualSignal bool
	grace        time.Duration
	alerter      domain.Alerter // replaces the counting alerter
}

func setup(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()
	if cfg.totalSeconds == 0 {
		cfg.totalSeconds = 1500
	}
	if cfg.grace == 0 {
		cfg.grace = 50 * time.Millisecond
	}

	log := logger.New(logger.LevelOff, nil)
	clock := &manualClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc := timer.New(storage.NewMemoryStore(cfg.totalSeconds, log), log,
		timer.WithClock(clock), timer.WithTickInterval(5*time.Millisecond))

	backend := &testBackend{
		Service: svc,
		calls:   make(map[string]int),
		fail:    make(map[string]error),
		silent:  cfg.silent,
	}
	if cfg.manualSignal {
		backend.signals = make(chan struct{}, 1)
	}
	rec := &recorder{}
	alerts := &countingAlerter{}
	var alerter domain.Alerter = alerts
	if cfg.alerter != nil {
		alerter = cfg.alerter
	}

	ctrl := New(backend, rec, log,
		WithPollInterval(5*time.Millisecond),
		WithCommandTimeout(time.Second),
		WithFinishGrace(cfg.grace),
		WithAlerter(alerter),
	)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Launch(ctx)
	go ctrl.Run(ctx)
	t.Cleanup(func() {
		backend.Release()
		cancel()
		<-ctrl.Done()
		svc.Shutdown()
	})

	f := &fixture{ctrl: ctrl, backend: backend, clock: clock, render: rec, alerts: alerts}
	f.waitStatus(t, domain.StatusReady)
	return f
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// holds fails if cond stops holding at any point within d.
func holds(t *testing.T, what string, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !cond() {
			t.Fatalf("%s no longer holds", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// signal pushes one completion signal as if the backend had sent it.
func (f *fixture) signal(t *testing.T) {
	t.Helper()
	select {
	case f.backend.signals <- struct{}{}:
	case <-time.After(time.Second):
		t.Fatal("completion signal not consumed")
	}
}

func (f *fixture) view(t *testing.T) view.State {
	t.Helper()
	st, ok, err := f.ctrl.View(context.Background())
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !ok {
		t.Fatal("no view yet")
	}
	return st
}

func (f *fixture) waitStatus(t *testing.T, want domain.Status) {
	t.Helper()
	waitFor(t, "status "+want.String(), func() bool {
		st, ok := f.render.Last()
		return ok && st.Status == want
	})
}
