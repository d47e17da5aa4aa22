package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
	"github.com/hammamikhairi/pomo/internal/mocks"
	"github.com/hammamikhairi/pomo/internal/storage"
	"github.com/hammamikhairi/pomo/internal/timer"
	"github.com/hammamikhairi/pomo/internal/view"
)

// settle gives in-flight results time to reach the loop.
func settle() { time.Sleep(30 * time.Millisecond) }

func TestControllerInitialRender(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 1500})

	st, _ := f.render.Last()
	if st.Clock() != "25:00" || st.Progress != 0 {
		t.Fatalf("expected 25:00 at zero progress, got %s / %v", st.Clock(), st.Progress)
	}
	want := view.Buttons{Start: true, Pause: false, Reset: true}
	if st.Buttons != want {
		t.Fatalf("expected buttons %+v, got %+v", want, st.Buttons)
	}
	if f.ctrl.Polling() != 0 {
		t.Fatal("idle timer must not poll")
	}
}

func TestControllerStartPollsPauseStops(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 1500})

	if err := f.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.waitStatus(t, domain.StatusRunning)
	waitFor(t, "poll loop", func() bool { return f.ctrl.Polling() == 1 })

	f.clock.Advance(61 * time.Second)
	waitFor(t, "polled digits", func() bool {
		st, _ := f.render.Last()
		return st.Clock() == "23:59"
	})

	if err := f.ctrl.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	f.waitStatus(t, domain.StatusPaused)
	waitFor(t, "poll loop to stop", func() bool { return f.ctrl.Polling() == 0 })

	st, _ := f.render.Last()
	if st.Buttons != (view.Buttons{Start: true, Pause: false, Reset: true}) {
		t.Fatalf("unexpected paused buttons %+v", st.Buttons)
	}
}

func TestControllerPauseWhilePausedChangesNothing(t *testing.T) {
	f := setup(t, fixtureConfig{})

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.ctrl.Pause()
	f.waitStatus(t, domain.StatusPaused)
	settle()

	before := f.view(t)
	renders := f.render.Count()

	f.ctrl.Pause()
	waitFor(t, "second pause", func() bool { return f.backend.Calls("pause") == 2 })
	settle()

	if got := f.view(t); got != before {
		t.Fatalf("view changed: %+v -> %+v", before, got)
	}
	if f.render.Count() != renders {
		t.Fatalf("expected no new renders, got %d more", f.render.Count()-renders)
	}
	if f.ctrl.Polling() != 0 {
		t.Fatal("pause must not restart polling")
	}
}

func TestControllerResetWhileReadyChangesNothing(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 900})
	before := f.view(t)

	f.ctrl.Reset()
	waitFor(t, "reset call", func() bool { return f.backend.Calls("reset") == 1 })
	settle()

	if got := f.view(t); got != before {
		t.Fatalf("view changed: %+v -> %+v", before, got)
	}
	if f.backend.Calls("reset") != 1 {
		t.Fatalf("expected one reset call, got %d", f.backend.Calls("reset"))
	}
}

func TestControllerAtMostOnePollLoop(t *testing.T) {
	f := setup(t, fixtureConfig{})

	var maxLive atomic.Int32
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := int32(f.ctrl.Polling()); n > maxLive.Load() {
				maxLive.Store(n)
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	for i := 0; i < 5; i++ {
		f.ctrl.Start()
		f.waitStatus(t, domain.StatusRunning)
		f.ctrl.Pause()
		f.waitStatus(t, domain.StatusPaused)
		f.ctrl.Start()
		f.waitStatus(t, domain.StatusRunning)
		f.ctrl.Reset()
		f.waitStatus(t, domain.StatusReady)
	}
	waitFor(t, "polling to stop", func() bool { return f.ctrl.Polling() == 0 })

	close(stop)
	wg.Wait()
	if maxLive.Load() > 1 {
		t.Fatalf("observed %d concurrent poll loops", maxLive.Load())
	}
}

func TestControllerAlertsOnceWhenSignalAndPollBothSeeZero(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, grace: 20 * time.Millisecond})

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.clock.Advance(3 * time.Second)

	f.waitStatus(t, domain.StatusFinished)
	waitFor(t, "alert", func() bool { return f.alerts.Count() >= 1 })
	time.Sleep(100 * time.Millisecond)

	if f.alerts.Count() != 1 {
		t.Fatalf("expected exactly one alert, got %d", f.alerts.Count())
	}
	st, _ := f.render.Last()
	if st.Clock() != "00:00" || st.Progress != 1 {
		t.Fatalf("expected terminal projection, got %s / %v", st.Clock(), st.Progress)
	}
	if f.ctrl.Polling() != 0 {
		t.Fatal("finished session must not poll")
	}
}

func TestControllerSignalIsCanonicalTrigger(t *testing.T) {
	// A long grace means only the pushed signal can alert in time.
	f := setup(t, fixtureConfig{totalSeconds: 2, grace: time.Hour})

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.clock.Advance(3 * time.Second)

	waitFor(t, "alert from signal", func() bool { return f.alerts.Count() == 1 })
}

func TestControllerPollFallbackWithoutSignal(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, silent: true, grace: 20 * time.Millisecond})

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.clock.Advance(3 * time.Second)

	f.waitStatus(t, domain.StatusFinished)
	waitFor(t, "fallback alert", func() bool { return f.alerts.Count() == 1 })
	time.Sleep(100 * time.Millisecond)
	if f.alerts.Count() != 1 {
		t.Fatalf("expected exactly one alert, got %d", f.alerts.Count())
	}
}

func TestControllerNextSessionAlertsAgain(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, grace: 20 * time.Millisecond})

	for i := 1; i <= 2; i++ {
		f.ctrl.Start()
		f.waitStatus(t, domain.StatusRunning)
		f.clock.Advance(3 * time.Second)
		f.waitStatus(t, domain.StatusFinished)
		waitFor(t, "alert", func() bool { return f.alerts.Count() == i })

		f.ctrl.Reset()
		f.waitStatus(t, domain.StatusReady)
	}
	time.Sleep(50 * time.Millisecond)
	if f.alerts.Count() != 2 {
		t.Fatalf("expected one alert per session, got %d", f.alerts.Count())
	}
}

// finishByFallback runs a session to zero and waits for the poll fallback
// to alert, leaving the completion signal undelivered.
func (f *fixture) finishByFallback(t *testing.T) {
	t.Helper()
	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.clock.Advance(3 * time.Second)
	f.waitStatus(t, domain.StatusFinished)
	waitFor(t, "fallback alert", func() bool { return f.alerts.Count() == 1 })
}

func TestControllerLateSignalAfterRestartIsIgnored(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, manualSignal: true, grace: 20 * time.Millisecond})
	f.finishByFallback(t)

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	waitFor(t, "poll loop", func() bool { return f.ctrl.Polling() == 1 })

	f.signal(t)
	holds(t, "running session", 100*time.Millisecond, func() bool {
		st, _ := f.render.Last()
		return st.Status == domain.StatusRunning && st.Clock() == "00:02" &&
			f.ctrl.Polling() == 1 && f.alerts.Count() == 1
	})
}

func TestControllerLateSignalAfterResetIsIgnored(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, manualSignal: true, grace: 20 * time.Millisecond})
	f.finishByFallback(t)

	f.ctrl.Reset()
	f.waitStatus(t, domain.StatusReady)

	f.signal(t)
	holds(t, "ready view", 100*time.Millisecond, func() bool {
		st, _ := f.render.Last()
		return st.Status == domain.StatusReady && st.Clock() == "00:02" && f.alerts.Count() == 1
	})
}

func TestControllerLateSignalForSameSessionDoesNotRealert(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, manualSignal: true, grace: 20 * time.Millisecond})
	f.finishByFallback(t)

	f.signal(t)
	holds(t, "single alert", 100*time.Millisecond, func() bool {
		st, _ := f.render.Last()
		return st.Status == domain.StatusFinished && f.alerts.Count() == 1
	})
}

func TestControllerSignalConfirmedBeforeAlert(t *testing.T) {
	f := setup(t, fixtureConfig{totalSeconds: 2, manualSignal: true, grace: time.Hour})

	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.signal(t)
	holds(t, "no alert while counting", 50*time.Millisecond, func() bool {
		st, _ := f.render.Last()
		return st.Status == domain.StatusRunning && f.alerts.Count() == 0
	})

	f.clock.Advance(3 * time.Second)
	f.waitStatus(t, domain.StatusFinished)
	f.signal(t)
	waitFor(t, "alert from signal", func() bool { return f.alerts.Count() == 1 })
	if f.ctrl.Polling() != 0 {
		t.Fatal("finished session must not poll")
	}
}

func TestControllerSurvivesAlertFailure(t *testing.T) {
	alerter := mocks.NewMockAlerter(gomock.NewController(t))
	fired := make(chan struct{})
	alerter.EXPECT().Alert(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(fired)
		return errors.New("no audio device")
	}).Times(1)

	f := setup(t, fixtureConfig{totalSeconds: 2, grace: 20 * time.Millisecond, alerter: alerter})
	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
	f.clock.Advance(3 * time.Second)
	f.waitStatus(t, domain.StatusFinished)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("alert never fired")
	}

	// The loop keeps serving commands after a failed alert.
	f.ctrl.Reset()
	f.waitStatus(t, domain.StatusReady)
}

func TestControllerFailedCommandKeepsView(t *testing.T) {
	f := setup(t, fixtureConfig{})
	f.backend.Fail("start", errors.New("backend rejected"))
	before := f.view(t)

	f.ctrl.Start()
	waitFor(t, "start call", func() bool { return f.backend.Calls("start") == 1 })
	settle()

	if got := f.view(t); got != before {
		t.Fatalf("view changed after failure: %+v -> %+v", before, got)
	}
	if last, _ := f.render.Last(); last != before {
		t.Fatalf("last render should match prior view, got %+v", last)
	}
	if f.ctrl.Polling() != 0 {
		t.Fatal("failed start must not poll")
	}

	// The user may simply try again.
	f.backend.Fail("start", nil)
	f.ctrl.Start()
	f.waitStatus(t, domain.StatusRunning)
}

func TestControllerFailedRefreshKeepsViewAndStillPolls(t *testing.T) {
	f := setup(t, fixtureConfig{})
	f.backend.Fail("get_state", errors.New("state unavailable"))

	f.ctrl.Start()
	waitFor(t, "start call", func() bool { return f.backend.Calls("start") == 1 })
	waitFor(t, "poll loop", func() bool { return f.ctrl.Polling() == 1 })

	if st := f.view(t); st.Status != domain.StatusReady {
		t.Fatalf("expected prior ready view, got %s", st.Status)
	}

	f.backend.Fail("get_state", nil)
	f.waitStatus(t, domain.StatusRunning)
}

func TestControllerDebouncesInFlightCommand(t *testing.T) {
	f := setup(t, fixtureConfig{})
	f.backend.Hold()

	f.ctrl.Start()
	f.ctrl.Start()
	f.ctrl.Start()
	waitFor(t, "start call", func() bool { return f.backend.Calls("start") == 1 })
	settle()

	if f.backend.Calls("start") != 1 {
		t.Fatalf("expected a single backend call, got %d", f.backend.Calls("start"))
	}
	if st := f.view(t); st.Buttons.Start {
		t.Fatal("start should render disabled while in flight")
	}

	f.backend.Release()
	f.waitStatus(t, domain.StatusRunning)
	if f.backend.Calls("start") != 1 {
		t.Fatalf("expected a single backend call, got %d", f.backend.Calls("start"))
	}
}

func TestControllerSetDuration(t *testing.T) {
	f := setup(t, fixtureConfig{})

	for _, minutes := range []int{0, -3} {
		if err := f.ctrl.SetDuration(minutes); !errors.Is(err, domain.ErrInvalidDuration) {
			t.Fatalf("minutes=%d: expected ErrInvalidDuration, got %v", minutes, err)
		}
	}
	if f.backend.Calls("set_duration") != 0 {
		t.Fatal("rejected durations must not reach the backend")
	}

	if err := f.ctrl.SetDuration(5); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	waitFor(t, "05:00", func() bool {
		st, _ := f.render.Last()
		return st.Clock() == "05:00"
	})

	snap, err := f.backend.Service.GetState(context.Background())
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if snap.TotalSeconds != 300 {
		t.Fatalf("expected backend total 300, got %d", snap.TotalSeconds)
	}
}

func TestControllerResumesPollingWhenBackendAlreadyCounting(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	svc := timer.New(storage.NewMemoryStore(600, log), log)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	rec := &recorder{}
	ctrl := New(svc, rec, log, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		<-ctrl.Done()
		svc.Shutdown()
	}()
	go ctrl.Run(ctx)

	waitFor(t, "poll loop", func() bool { return ctrl.Polling() == 1 })
	if st, _ := rec.Last(); st.Status != domain.StatusRunning {
		t.Fatalf("expected running view, got %s", st.Status)
	}
}

func TestControllerRejectsCommandsAfterStop(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	svc := timer.New(storage.NewMemoryStore(60, log), log)
	ctrl := New(svc, RenderFunc(func(view.State) {}), log)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	<-ctrl.Ready()
	cancel()
	<-ctrl.Done()

	if err := ctrl.Start(); !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, _, err := ctrl.View(context.Background()); !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed from view, got %v", err)
	}
}
