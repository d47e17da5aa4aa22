// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] renders the timer from view states pushed by the session
// controller and turns key presses into controller commands. It also
// implements the alert dialog.
package display

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/view"
)

// Compile-time interface check.
var _ domain.Notifier = (*UI)(nil)

// Commander is the control surface the keys drive.
type Commander interface {
	Start() error
	Pause() error
	Reset() error
	SetDuration(minutes int) error
}

// Options configures the UI.
type Options struct {
	Presets []int // minutes bound to keys 1-4
	Verbose bool  // show the ring offset
	Banner  bool
}

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Render, Notify and Heard are
// safe from any goroutine once [UI.Ready] is closed; after quit they are
// dropped.
type UI struct {
	opts    Options
	program atomic.Pointer[tea.Program]
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(opts Options) *UI {
	return &UI{
		opts:    opts,
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Render shows a new view state. Implements the session renderer.
func (u *UI) Render(st view.State) { u.send(viewMsg(st)) }

// Notify raises the modal alert dialog.
func (u *UI) Notify(ctx context.Context, title, message string) error {
	u.send(alertMsg{title: title, message: message})
	return nil
}

// Heard shows a line recognised from voice input.
func (u *UI) Heard(line string) { u.send(heardMsg(line)) }

// ShowHelp expands the key help to its full view.
func (u *UI) ShowHelp() { u.send(helpMsg{}) }

// Dismiss closes the alert dialog, if any.
func (u *UI) Dismiss() { u.send(dismissMsg{}) }

// ShowError surfaces a command error in the footer.
func (u *UI) ShowError(err error) { u.send(errMsg{err}) }

// Ready is closed once the Bubble Tea event loop is running.
func (u *UI) Ready() <-chan struct{} { return u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if p := u.program.Load(); p != nil {
		p.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run(cmds Commander) error {
	m := newModel(cmds, u.opts)
	m.readyCh = u.readyCh

	p := tea.NewProgram(m, tea.WithAltScreen())
	u.program.Store(p)
	_, err := p.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

func (u *UI) send(msg tea.Msg) {
	if u.done.Load() {
		return
	}
	if p := u.program.Load(); p != nil {
		p.Send(msg)
	}
}
