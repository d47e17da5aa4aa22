package session

import (
	"context"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// CompletionListener forwards the backend's pushed finished signal. It
// subscribes once, when created, for the lifetime of the application.
type CompletionListener struct {
	signals <-chan struct{}
	log     *logger.Logger
}

// NewCompletionListener subscribes to the backend's completion signal.
func NewCompletionListener(backend domain.Backend, log *logger.Logger) *CompletionListener {
	return &CompletionListener{
		signals: backend.Subscribe(),
		log:     log,
	}
}

// Run forwards every signal to deliver until ctx is cancelled, deliver
// gives up, or the backend closes the subscription. Blocks.
func (l *CompletionListener) Run(ctx context.Context, deliver func(ctx context.Context) bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-l.signals:
			if !ok {
				l.log.Info("completion subscription closed")
				return
			}
			l.log.Debug("completion signal received")
			if !deliver(ctx) {
				return
			}
		}
	}
}
