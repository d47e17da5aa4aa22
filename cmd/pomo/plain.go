package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hammamikhairi/pomo/internal/conversation"
	"github.com/hammamikhairi/pomo/internal/display"
	"github.com/hammamikhairi/pomo/internal/session"
)

// runPlain drives the timer from typed lines on stdin, printing one status
// line per change.
func runPlain(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	renderer := conversation.NewLineRenderer(nil)
	notifier := conversation.NewCLINotifier(a.log.Named("notify"), nil)
	ctrl := a.controller(renderer, notifier)

	fmt.Print(display.RenderBanner())
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Run(ctx); err != nil {
			a.log.Error("session: %v", err)
		}
	}()

	err := a.repl(ctx, ctrl, renderer, os.Stdin)
	cancel()
	<-done
	return err
}

// repl reads commands until quit, EOF or cancellation.
func (a *app) repl(ctx context.Context, ctrl *session.Controller, renderer *conversation.LineRenderer, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	act := actions{
		status: func(ctx context.Context) {
			st, ok, err := ctrl.View(ctx)
			if err != nil || !ok {
				fmt.Println("  timer not synced yet")
				return
			}
			renderer.Render(st)
		},
		help: func() {
			for _, l := range conversation.HelpLines() {
				fmt.Println(l)
			}
		},
		dismiss: func() { fmt.Println("  ok") },
		quit:    func() { fmt.Println("  bye") },
		unknown: func(input string) { fmt.Printf("  didn't catch %q, type 'help' for commands\n", input) },
		failed:  func(err error) { fmt.Printf("  %v\n", err) },
	}

	voice := a.voice()
	for {
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = l
		case l, ok := <-voice:
			if !ok {
				voice = nil
				continue
			}
			fmt.Printf("  [voice] %s\n", l)
			line = l
		}

		if !a.handleLine(ctx, ctrl, line, act) {
			return nil
		}
	}
}
