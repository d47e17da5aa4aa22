package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/pomo/internal/alert"
	"github.com/hammamikhairi/pomo/internal/config"
	"github.com/hammamikhairi/pomo/internal/conversation"
	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/session"
	"github.com/hammamikhairi/pomo/internal/speech"
	"github.com/hammamikhairi/pomo/internal/storage"
	"github.com/hammamikhairi/pomo/internal/timer"
	"github.com/hammamikhairi/pomo/internal/view"
)

const sttDir = ".pomo-stt"

// app holds what the full-screen and plain front ends share. The
// controller is built per front end because each brings its own renderer
// and dialog.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	backend *timer.Service
	sounder alert.Sounder // nil when sound is off or unavailable
	ear     *speech.Ear   // nil when voice input is off
	parser  domain.IntentParser
}

type frontEnd func(ctx context.Context, a *app) error

// withApp wires the backend and the ambient services, runs fe and
// tears everything down when it returns.
func withApp(cmd *cobra.Command, f *flags, fe frontEnd) error {
	cfg, err := resolveConfig(cmd, f)
	if err != nil {
		return err
	}

	log, closeLog := openLog(f)
	defer closeLog()

	// Cancelled when the front end quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storage.NewMemoryStore(cfg.Minutes*60, log.Named("store"))
	backend := timer.New(store, log.Named("timer"))
	backend.Launch(ctx)
	defer backend.Shutdown()

	a := &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		parser:  conversation.NewKeywordParser(log.Named("parser")),
	}

	if !f.noSound {
		a.sounder = newSounder(log.Named("alert"))
	}

	if f.voice {
		if _, err := os.Stat(f.whisperModel); err != nil {
			return fmt.Errorf("whisper model not found at %s", f.whisperModel)
		}
		if err := os.MkdirAll(sttDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", sttDir, err)
		}
		rec, err := speech.NewWhisperRecorder(f.whisperBin, f.whisperModel, sttDir, log.Named("whisper"))
		if err != nil {
			return err
		}
		a.ear = speech.NewEar(rec, log.Named("ear"))
		go a.ear.Run(ctx)
		log.Info("voice input enabled (bin=%s, model=%s)", f.whisperBin, f.whisperModel)
	}

	log.Info("pomo starting (minutes=%d, poll=%s, grace=%s)", cfg.Minutes, cfg.PollInterval, cfg.FinishGrace)
	return fe(ctx, a)
}

// newSounder renders the completion tone for the audio device. Sound is
// optional: without a device the alert is silent.
func newSounder(log *logger.Logger) alert.Sounder {
	player, err := alert.NewPlayer(log)
	if err != nil {
		log.Error("audio player init failed, sound disabled: %v", err)
		return nil
	}
	sounder, err := alert.NewToneSounder(player, alert.DefaultTone)
	if err != nil {
		log.Error("tone init failed, sound disabled: %v", err)
		return nil
	}
	return sounder
}

func (a *app) controller(renderer session.Renderer, notifier domain.Notifier) *session.Controller {
	return session.New(a.backend, renderer, a.log.Named("session"),
		session.WithPollInterval(a.cfg.PollInterval),
		session.WithCommandTimeout(a.cfg.CommandTimeout),
		session.WithFinishGrace(a.cfg.FinishGrace),
		session.WithAlerter(alert.New(notifier, a.sounder, a.log.Named("alert"))),
	)
}

// voice returns the voice line channel. Receiving on the nil channel
// blocks forever, so callers can select on it unconditionally.
func (a *app) voice() <-chan string {
	if a.ear == nil {
		return nil
	}
	return a.ear.C()
}

// statusLine summarises a view for a spoken status request.
func statusLine(st view.State) string {
	return fmt.Sprintf("%s %s (%.0f%%)", st.Clock(), st.Label, st.Progress*100)
}

// actions are the front-end specific reactions to intents that never
// reach the backend.
type actions struct {
	status  func(ctx context.Context)
	help    func()
	dismiss func()
	quit    func()
	unknown func(input string)
	failed  func(err error)
}

// handleLine parses one typed or spoken line and acts on it. It reports
// whether the front end should keep going.
func (a *app) handleLine(ctx context.Context, ctrl *session.Controller, line string, act actions) bool {
	intent, err := a.parser.Parse(ctx, line)
	if err != nil {
		a.log.Warn("parse %q: %v", line, err)
		act.failed(err)
		return true
	}
	a.log.Debug("intent: %s", intent.Type)

	if cmd, ok := intent.Command(); ok {
		if err := ctrl.Submit(cmd); err != nil {
			if errors.Is(err, domain.ErrClosed) {
				return false
			}
			act.failed(err)
		}
		return true
	}

	switch intent.Type {
	case domain.IntentStatus:
		act.status(ctx)
	case domain.IntentHelp:
		act.help()
	case domain.IntentDismiss:
		act.dismiss()
	case domain.IntentQuit:
		act.quit()
		return false
	case domain.IntentUnknown:
		if intent.Payload != "" {
			act.unknown(intent.Payload)
		}
	}
	return true
}
