package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/pomo/internal/config"
	"github.com/hammamikhairi/pomo/internal/conversation"
	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/mocks"
	"github.com/hammamikhairi/pomo/internal/storage"
	"github.com/hammamikhairi/pomo/internal/timer"
	"github.com/hammamikhairi/pomo/internal/view"
)

func TestResolveConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[timer]\ndefault-minutes = 50\n\n[client]\npoll-interval = \"500ms\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// File beats defaults.
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := resolveConfig(cmd, flagsOf(t, cmd))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Minutes != 50 || cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("expected file values, got %+v", cfg)
	}

	// Explicit flags beat the file.
	cmd = newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--minutes", "10"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err = resolveConfig(cmd, flagsOf(t, cmd))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Minutes != 10 || cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("expected minutes from flag, got %+v", cfg)
	}
}

func TestResolveConfigRejectsBadMinutes(t *testing.T) {
	cmd := newRootCmd()
	path := filepath.Join(t.TempDir(), "missing.toml")
	if err := cmd.ParseFlags([]string{"--config", path, "--minutes", "0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := resolveConfig(cmd, flagsOf(t, cmd)); err == nil {
		t.Fatal("expected validation error")
	}
}

// flagsOf rebuilds the flag struct from a parsed command.
func flagsOf(t *testing.T, cmd *cobra.Command) *flags {
	t.Helper()
	pf := cmd.PersistentFlags()
	f := &flags{}
	f.minutes, _ = pf.GetInt("minutes")
	f.pollInterval, _ = pf.GetDuration("poll-interval")
	f.configPath, _ = pf.GetString("config")
	return f
}

func TestReplDrivesTheTimer(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	backend := timer.New(storage.NewMemoryStore(1500, log), log)

	a := &app{
		cfg:     config.Default(),
		log:     log,
		backend: backend,
		parser:  conversation.NewKeywordParser(log),
	}
	a.cfg.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := conversation.NewLineRenderer(func(string, ...interface{}) {})
	ctrl := a.controller(renderer, conversation.NewCLINotifier(log, func(string, ...interface{}) {}))
	go ctrl.Run(ctx)
	<-ctrl.Ready()

	in := strings.NewReader("set 5\nbogus\n2.5\nstatus\nhelp\n")
	if err := a.repl(ctx, ctrl, renderer, in); err != nil {
		t.Fatalf("repl: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := backend.GetState(ctx)
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if snap.TotalSeconds == 300 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected the backend to be set to 300 seconds")
}

func TestReplStopsOnQuit(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	backend := timer.New(storage.NewMemoryStore(60, log), log)
	a := &app{cfg: config.Default(), log: log, backend: backend, parser: conversation.NewKeywordParser(log)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renderer := conversation.NewLineRenderer(func(string, ...interface{}) {})
	ctrl := a.controller(renderer, conversation.NewCLINotifier(log, func(string, ...interface{}) {}))
	go ctrl.Run(ctx)
	<-ctrl.Ready()

	// Lines after quit are never read.
	in := strings.NewReader("quit\nstart\n")
	if err := a.repl(ctx, ctrl, renderer, in); err != nil {
		t.Fatalf("repl: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	snap, _ := backend.GetState(ctx)
	if snap.IsRunning {
		t.Fatal("start after quit must not reach the backend")
	}
}

// actionLog records which front-end reaction handleLine picked.
type actionLog struct {
	got []string
}

func (l *actionLog) actions() actions {
	return actions{
		status:  func(context.Context) { l.got = append(l.got, "status") },
		help:    func() { l.got = append(l.got, "help") },
		dismiss: func() { l.got = append(l.got, "dismiss") },
		quit:    func() { l.got = append(l.got, "quit") },
		unknown: func(input string) { l.got = append(l.got, "unknown:"+input) },
		failed:  func(err error) { l.got = append(l.got, "failed:"+err.Error()) },
	}
}

func TestHandleLineRoutesIntents(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	backend := timer.New(storage.NewMemoryStore(1500, log), log)
	parser := mocks.NewMockIntentParser(gomock.NewController(t))
	a := &app{cfg: config.Default(), log: log, backend: backend, parser: parser}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl := a.controller(conversation.NewLineRenderer(func(string, ...interface{}) {}),
		conversation.NewCLINotifier(log, func(string, ...interface{}) {}))
	go ctrl.Run(ctx)
	<-ctrl.Ready()

	tests := []struct {
		line   string
		intent *domain.Intent
		err    error
		want   string
		more   bool
	}{
		{"how long", &domain.Intent{Type: domain.IntentStatus}, nil, "status", true},
		{"what can I say", &domain.Intent{Type: domain.IntentHelp}, nil, "help", true},
		{"ok", &domain.Intent{Type: domain.IntentDismiss}, nil, "dismiss", true},
		{"banana", &domain.Intent{Type: domain.IntentUnknown, Payload: "banana"}, nil, "unknown:banana", true},
		{"set 2.5", nil, domain.ErrInvalidDuration, "failed:" + domain.ErrInvalidDuration.Error(), true},
		{"bye", &domain.Intent{Type: domain.IntentQuit}, nil, "quit", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			parser.EXPECT().Parse(gomock.Any(), tt.line).Return(tt.intent, tt.err)
			l := &actionLog{}
			if more := a.handleLine(ctx, ctrl, tt.line, l.actions()); more != tt.more {
				t.Fatalf("keep going = %v, want %v", more, tt.more)
			}
			if len(l.got) != 1 || l.got[0] != tt.want {
				t.Fatalf("actions = %v, want [%s]", l.got, tt.want)
			}
		})
	}
}

func TestHandleLineSubmitsCommands(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	backend := timer.New(storage.NewMemoryStore(1500, log), log)
	parser := mocks.NewMockIntentParser(gomock.NewController(t))
	a := &app{cfg: config.Default(), log: log, backend: backend, parser: parser}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := a.controller(conversation.NewLineRenderer(func(string, ...interface{}) {}),
		conversation.NewCLINotifier(log, func(string, ...interface{}) {}))
	go ctrl.Run(ctx)
	<-ctrl.Ready()

	parser.EXPECT().Parse(gomock.Any(), "ten minutes").
		Return(&domain.Intent{Type: domain.IntentSetDuration, Minutes: 10}, nil)
	l := &actionLog{}
	if !a.handleLine(ctx, ctrl, "ten minutes", l.actions()) || len(l.got) != 0 {
		t.Fatalf("expected a silent submit, got %v", l.got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := backend.GetState(ctx)
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if snap.TotalSeconds == 600 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the backend to be set to 600 seconds")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A stopped controller ends the front end.
	cancel()
	<-ctrl.Done()
	parser.EXPECT().Parse(gomock.Any(), "start").Return(&domain.Intent{Type: domain.IntentStart}, nil)
	if a.handleLine(context.Background(), ctrl, "start", l.actions()) {
		t.Fatal("expected handleLine to stop once the controller is gone")
	}
}

func TestStatusLine(t *testing.T) {
	st := view.Project(domain.TimerSnapshot{TotalSeconds: 1500, RemainingSeconds: 750, IsRunning: true})
	if got, want := statusLine(st), "12:30 Running... (50%)"; got != want {
		t.Fatalf("statusLine = %q, want %q", got, want)
	}
}
