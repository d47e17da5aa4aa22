// Package session keeps the client view in step with the backend timer.
//
// A Controller owns a single event loop. User commands, command results,
// poll snapshots, completion signals and the finish fallback are all
// delivered to it as events and handled one at a time, so the view state,
// the poll loop handle and the in-flight set are never touched
// concurrently. Backend round trips run off the loop and report back as
// events; nothing is rendered before the backend acknowledges.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/view"
)

// Renderer receives every new view state. Called from the controller loop;
// implementations must not block for long.
type Renderer interface {
	Render(st view.State)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(st view.State)

// Render calls f(st).
func (f RenderFunc) Render(st view.State) { f(st) }

// Option configures the controller.
type Option func(*Controller)

// WithPollInterval sets the poll period while a session counts.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// WithCommandTimeout bounds each backend round trip.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.commandTimeout = d
	}
}

// WithFinishGrace sets how long a polled zero waits for the pushed
// completion signal before alerting on its own.
func WithFinishGrace(d time.Duration) Option {
	return func(c *Controller) {
		c.finishGrace = d
	}
}

// WithAlerter sets the completion alert path.
func WithAlerter(a domain.Alerter) Option {
	return func(c *Controller) {
		c.alerter = a
	}
}

type (
	commandEvent  struct{ cmd domain.Command }
	resultEvent   struct{ res Result }
	pollEvent     struct{ poll Poll }
	syncEvent     struct{ res Result }
	finishedEvent struct{}
	confirmEvent  struct{ check confirmation }
	graceEvent    struct{ gen uint64 }
	viewQuery     struct{ reply chan viewReply }
)

// confirmation is the snapshot fetched after a completion signal, tagged
// with the session it was requested for.
type confirmation struct {
	res   Result
	epoch uint64
}

type viewReply struct {
	st view.State
	ok bool
}

// Controller is the client-side timer state machine.
type Controller struct {
	backend        domain.Backend
	renderer       Renderer
	alerter        domain.Alerter
	log            *logger.Logger
	pollInterval   time.Duration
	commandTimeout time.Duration
	finishGrace    time.Duration

	events     chan any
	ready      chan struct{}
	stopped    chan struct{}
	dispatcher *Dispatcher
	poller     *Poller
	completion *CompletionListener

	// Loop-owned state.
	snap     domain.TimerSnapshot
	current  view.State
	hasView  bool
	last     view.State
	rendered bool
	alerted  bool
	epoch    uint64
	grace    *time.Timer
	graceGen uint64
}

// New creates a controller. It subscribes to the backend's completion
// signal immediately; call Run to start handling events.
func New(backend domain.Backend, renderer Renderer, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		backend:        backend,
		renderer:       renderer,
		log:            log,
		pollInterval:   100 * time.Millisecond,
		commandTimeout: 2 * time.Second,
		finishGrace:    time.Second,
		events:         make(chan any, 32),
		ready:          make(chan struct{}),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.dispatcher = NewDispatcher(backend, log.Named("dispatcher"), c.commandTimeout)
	c.poller = NewPoller(c.pollInterval, c.fetch, func(ctx context.Context, p Poll) bool {
		return c.send(ctx, pollEvent{poll: p})
	}, log.Named("poller"))
	c.completion = NewCompletionListener(backend, log.Named("completion"))
	return c
}

// Start asks the backend to start or resume counting.
func (c *Controller) Start() error { return c.Submit(domain.Command{Type: domain.CommandStart}) }

// Pause asks the backend to pause.
func (c *Controller) Pause() error { return c.Submit(domain.Command{Type: domain.CommandPause}) }

// Reset asks the backend to stop and restore the full duration.
func (c *Controller) Reset() error { return c.Submit(domain.Command{Type: domain.CommandReset}) }

// SetDuration asks the backend to switch to a new length in whole minutes.
// Non-positive values are rejected without contacting the backend.
func (c *Controller) SetDuration(minutes int) error {
	return c.Submit(domain.Command{Type: domain.CommandSetDuration, Minutes: minutes})
}

// Submit queues a command for the loop. It returns once queued; the
// outcome shows up as a render or a log line.
func (c *Controller) Submit(cmd domain.Command) error {
	if cmd.Type == domain.CommandSetDuration && cmd.Minutes <= 0 {
		return fmt.Errorf("set duration %d: %w", cmd.Minutes, domain.ErrInvalidDuration)
	}
	select {
	case <-c.stopped:
		return domain.ErrClosed
	default:
	}
	select {
	case c.events <- commandEvent{cmd: cmd}:
		return nil
	case <-c.stopped:
		return domain.ErrClosed
	}
}

// View returns the latest projected state. The bool is false until the
// first snapshot has been fetched.
func (c *Controller) View(ctx context.Context) (view.State, bool, error) {
	q := viewQuery{reply: make(chan viewReply, 1)}
	select {
	case c.events <- q:
	case <-c.stopped:
		return view.State{}, false, domain.ErrClosed
	case <-ctx.Done():
		return view.State{}, false, ctx.Err()
	}
	select {
	case r := <-q.reply:
		return r.st, r.ok, nil
	case <-c.stopped:
		return view.State{}, false, domain.ErrClosed
	case <-ctx.Done():
		return view.State{}, false, ctx.Err()
	}
}

// Ready is closed once Run has started handling events.
func (c *Controller) Ready() <-chan struct{} { return c.ready }

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.stopped }

// Polling reports how many poll loops are alive. Safe from any goroutine.
func (c *Controller) Polling() int { return c.poller.Live() }

// Run handles events until ctx is cancelled. Blocks.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	defer c.stopGrace()
	defer c.poller.Stop()

	go c.completion.Run(ctx, func(ctx context.Context) bool {
		return c.send(ctx, finishedEvent{})
	})
	go c.sync(ctx)

	close(c.ready)
	c.log.Info("session controller started (poll=%s, timeout=%s)", c.pollInterval, c.commandTimeout)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session controller stopped")
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case commandEvent:
		c.handleCommand(ctx, ev.cmd)
	case resultEvent:
		c.handleResult(ctx, ev.res)
	case syncEvent:
		c.handleSync(ctx, ev.res)
	case pollEvent:
		c.handlePoll(ctx, ev.poll)
	case finishedEvent:
		c.handleFinished(ctx)
	case confirmEvent:
		c.handleConfirm(ctx, ev.check)
	case graceEvent:
		c.handleGrace(ctx, ev.gen)
	case viewQuery:
		ev.reply <- viewReply{st: c.dispatcher.Mask(c.current), ok: c.hasView}
	default:
		c.log.Warn("unexpected event %T", ev)
	}
}

func (c *Controller) handleCommand(ctx context.Context, cmd domain.Command) {
	if !c.dispatcher.Acquire(cmd.Type) {
		c.log.Debug("%s already in flight, ignoring", cmd.Type)
		return
	}
	c.render()

	go func() {
		res := c.dispatcher.Dispatch(ctx, cmd)
		c.send(ctx, resultEvent{res: res})
	}()
}

func (c *Controller) handleResult(ctx context.Context, res Result) {
	c.dispatcher.Release(res.Command.Type)

	if res.Err != nil {
		c.log.Error("%v", res.Err)
		c.render()
		return
	}

	switch res.Command.Type {
	case domain.CommandStart:
		if res.RefreshErr != nil || res.Snapshot.Counting() {
			c.poller.Start(ctx)
		}
	case domain.CommandPause, domain.CommandReset:
		c.poller.Stop()
	}

	// Anything but a pause opens a new session as far as alerting goes.
	if res.Command.Type != domain.CommandPause {
		c.alerted = false
		c.epoch++
		c.stopGrace()
	}

	if res.RefreshErr != nil {
		c.log.Error("%v", res.RefreshErr)
		c.render()
		return
	}
	c.apply(res.Snapshot)
}

func (c *Controller) handleSync(ctx context.Context, res Result) {
	if res.RefreshErr != nil {
		c.log.Error("initial sync: %v", res.RefreshErr)
		return
	}
	c.apply(res.Snapshot)
	if res.Snapshot.Counting() {
		c.log.Info("backend already counting, resuming poll loop")
		c.poller.Start(ctx)
	}
}

func (c *Controller) handlePoll(ctx context.Context, p Poll) {
	if !c.poller.Current(p.Generation) {
		c.log.Debug("dropping snapshot from stale poll loop %d", p.Generation)
		return
	}
	if p.Err != nil {
		c.log.Warn("poll: %v", p.Err)
		return
	}

	c.apply(p.Snapshot)
	if p.Snapshot.Counting() {
		return
	}

	c.poller.Stop()
	if p.Snapshot.Finished() && !p.Snapshot.IsPaused && !c.alerted {
		c.armGrace(ctx)
	}
}

// handleFinished checks the signal against a fresh snapshot before acting
// on it. A signal can trail the session it belongs to.
func (c *Controller) handleFinished(ctx context.Context) {
	epoch := c.epoch
	go func() {
		snap, err := c.fetch(ctx)
		c.send(ctx, confirmEvent{check: confirmation{
			res:   Result{Snapshot: snap, RefreshErr: err},
			epoch: epoch,
		}})
	}()
}

func (c *Controller) handleConfirm(ctx context.Context, check confirmation) {
	res := check.res
	if check.epoch != c.epoch {
		c.log.Debug("dropping completion signal from an earlier session")
		return
	}
	if res.RefreshErr != nil {
		c.log.Warn("confirming completion: %v", res.RefreshErr)
		return
	}
	if !res.Snapshot.Finished() || res.Snapshot.Counting() {
		c.log.Debug("dropping stale completion signal (remaining=%d running=%t)",
			res.Snapshot.RemainingSeconds, res.Snapshot.IsRunning)
		return
	}

	c.poller.Stop()
	c.stopGrace()
	c.apply(res.Snapshot.Terminal())
	c.raiseAlert(ctx, "completion signal")
}

func (c *Controller) handleGrace(ctx context.Context, gen uint64) {
	if gen != c.graceGen {
		return
	}
	c.grace = nil
	c.log.Warn("no completion signal within %s of reaching zero, alerting from poll", c.finishGrace)
	c.raiseAlert(ctx, "poll fallback")
}

// raiseAlert fires the alert path at most once per session.
func (c *Controller) raiseAlert(ctx context.Context, source string) {
	if c.alerted {
		c.log.Debug("already alerted for this session, ignoring %s", source)
		return
	}
	c.alerted = true
	c.log.Info("session finished (%s)", source)

	if c.alerter == nil {
		return
	}
	go func() {
		if err := c.alerter.Alert(ctx); err != nil {
			c.log.Error("alert: %v", err)
		}
	}()
}

func (c *Controller) armGrace(ctx context.Context) {
	c.stopGrace()
	gen := c.graceGen
	c.grace = time.AfterFunc(c.finishGrace, func() {
		c.send(ctx, graceEvent{gen: gen})
	})
}

// stopGrace cancels a pending fallback. Bumping the generation also voids
// a fallback that fired but has not been handled yet.
func (c *Controller) stopGrace() {
	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}
	c.graceGen++
}

// apply replaces the view with a fresh projection of snap.
func (c *Controller) apply(snap domain.TimerSnapshot) {
	c.snap = snap
	c.current = view.Project(snap)
	c.hasView = true
	c.render()
}

// render pushes the masked view to the renderer unless nothing changed.
func (c *Controller) render() {
	if !c.hasView {
		return
	}
	st := c.dispatcher.Mask(c.current)
	if c.rendered && st == c.last {
		return
	}
	c.last = st
	c.rendered = true
	c.renderer.Render(st)
}

// sync fetches the initial snapshot off the loop.
func (c *Controller) sync(ctx context.Context) {
	snap, err := c.fetch(ctx)
	c.send(ctx, syncEvent{res: Result{Snapshot: snap, RefreshErr: err}})
}

func (c *Controller) fetch(ctx context.Context) (domain.TimerSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()
	return c.backend.GetState(fetchCtx)
}

func (c *Controller) send(ctx context.Context, ev any) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
