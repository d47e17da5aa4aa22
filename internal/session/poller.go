package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Poll is one snapshot fetched by the poll loop. Generation identifies the
// loop that produced it.
type Poll struct {
	Generation uint64
	Snapshot   domain.TimerSnapshot
	Err        error
}

// FetchFunc pulls the current snapshot.
type FetchFunc func(ctx context.Context) (domain.TimerSnapshot, error)

// SinkFunc hands a poll result to its consumer. It must give up and return
// false once ctx is done.
type SinkFunc func(ctx context.Context, p Poll) bool

// Poller refreshes the snapshot on a fixed period while a session counts.
// At most one loop is alive at a time: Start stops the previous loop and
// waits for it to exit before launching the next.
//
// Start and Stop are not safe for concurrent use; the controller loop is
// their only caller.
type Poller struct {
	interval time.Duration
	fetch    FetchFunc
	sink     SinkFunc
	log      *logger.Logger

	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	live   atomic.Int32
}

// NewPoller creates a stopped poller.
func NewPoller(interval time.Duration, fetch FetchFunc, sink SinkFunc, log *logger.Logger) *Poller {
	return &Poller{
		interval: interval,
		fetch:    fetch,
		sink:     sink,
		log:      log,
	}
}

// Start launches a fresh poll loop and returns its generation.
func (p *Poller) Start(ctx context.Context) uint64 {
	p.Stop()

	p.gen++
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.live.Add(1)
	go p.run(loopCtx, p.gen, done)

	p.log.Debug("poll loop %d started (interval=%s)", p.gen, p.interval)
	return p.gen
}

// Stop cancels the running loop and waits for it to exit. Stopping a
// stopped poller does nothing.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
	p.log.Debug("poll loop %d stopped", p.gen)
}

// Active reports whether a loop is running.
func (p *Poller) Active() bool {
	return p.cancel != nil
}

// Current reports whether gen belongs to the running loop.
func (p *Poller) Current(gen uint64) bool {
	return p.cancel != nil && gen == p.gen
}

// Live returns the number of poll goroutines still alive. Safe from any
// goroutine.
func (p *Poller) Live() int {
	return int(p.live.Load())
}

func (p *Poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer p.live.Add(-1)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if !p.sink(ctx, Poll{Generation: gen, Snapshot: snap, Err: err}) {
			return
		}
	}
}
