package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/pomo/internal/display"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/session"
)

// runTUI drives the timer from the full-screen Bubble Tea UI.
func runTUI(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui := display.NewUI(display.Options{
		Presets: a.cfg.Presets,
		Verbose: a.log.GetLevel() >= logger.LevelVerbose,
		Banner:  true,
	})
	ctrl := a.controller(ui, ui)

	// Renders go through the program, so the controller starts once the
	// Bubble Tea loop is up.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ui.Ready():
		case <-ctx.Done():
			return
		}
		if err := ctrl.Run(ctx); err != nil {
			a.log.Error("session: %v", err)
		}
	}()

	go a.listenTUI(ctx, ui, ctrl)

	err := ui.Run(ctrl)
	cancel()
	wg.Wait()
	a.log.Info("ui closed")
	return err
}

// listenTUI applies voice commands while the UI runs.
func (a *app) listenTUI(ctx context.Context, ui *display.UI, ctrl *session.Controller) {
	act := actions{
		status: func(ctx context.Context) {
			st, ok, err := ctrl.View(ctx)
			if err != nil || !ok {
				ui.Heard("timer not synced yet")
				return
			}
			ui.Heard(statusLine(st))
		},
		help:    ui.ShowHelp,
		dismiss: ui.Dismiss,
		quit:    ui.Quit,
		unknown: func(input string) { ui.ShowError(fmt.Errorf("didn't catch %q", input)) },
		failed:  ui.ShowError,
	}

	voice := a.voice()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-voice:
			if !ok {
				return
			}
			ui.Heard(line)
			if !a.handleLine(ctx, ctrl, line, act) {
				return
			}
		}
	}
}
