package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/view"
)

// Messages.
type (
	viewMsg    view.State
	alertMsg   struct{ title, message string }
	heardMsg   string
	dismissMsg struct{}
	helpMsg    struct{}
	errMsg     struct{ err error }
)

type dialog struct {
	title   string
	message string
}

type model struct {
	cmds    Commander
	opts    Options
	keys    keyMap
	help    help.Model
	bar     progress.Model
	banner  string
	readyCh chan struct{}

	state  view.State
	synced bool
	dialog *dialog
	heard  string
	err    error
	width  int
	height int
}

func newModel(cmds Commander, opts Options) model {
	m := model{
		cmds: cmds,
		opts: opts,
		keys: defaultKeyMap(),
		help: help.New(),
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.bar.Width = 40
	if opts.Banner {
		m.banner = centerBanner(bannerRaw, 0)
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.readyCh == nil {
		return nil
	}
	return signalReady(m.readyCh)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.state = view.State(msg)
		m.synced = true
		return m, tea.SetWindowTitle("pomo " + m.state.Clock() + " " + m.state.Label)

	case alertMsg:
		m.dialog = &dialog{title: msg.title, message: msg.message}
		return m, tea.SetWindowTitle(msg.message)

	case dismissMsg:
		m.dialog = nil
		return m, nil

	case helpMsg:
		m.help.ShowAll = true
		return m, nil

	case heardMsg:
		m.heard = string(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.dialog != nil {
		// The dialog is modal.
		if key.Matches(msg, m.keys.Dismiss) {
			m.dialog = nil
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if !m.synced {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		return m, m.command(domain.CommandStart, m.cmds.Start)
	case key.Matches(msg, m.keys.Pause):
		return m, m.command(domain.CommandPause, m.cmds.Pause)
	case key.Matches(msg, m.keys.Reset):
		return m, m.command(domain.CommandReset, m.cmds.Reset)
	case key.Matches(msg, m.keys.Preset):
		idx := int(msg.String()[0] - '1')
		if idx < 0 || idx >= len(m.opts.Presets) {
			return m, nil
		}
		minutes := m.opts.Presets[idx]
		return m, m.command(domain.CommandSetDuration, func() error { return m.cmds.SetDuration(minutes) })
	}
	return m, nil
}

// command runs fn off the Update loop if its button is enabled. The
// controller reports the outcome by rendering.
func (m model) command(c domain.CommandType, fn func() error) tea.Cmd {
	if !m.state.Buttons.Allows(c) {
		return nil
	}
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{fmt.Errorf("%s: %w", c, err)}
		}
		return errMsg{}
	}
}

func (m model) View() string {
	body := m.body()
	if m.dialog != nil {
		box := dialogStyle.Render(dialogTitleStyle.Render(m.dialog.title) + "\n\n" + m.dialog.message)
		body = lipgloss.JoinVertical(lipgloss.Center, box, m.help.View(dialogKeys{m.keys}))
	}
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

func (m model) body() string {
	if !m.synced {
		return secondaryStyle.Render("connecting to timer...")
	}
	st := m.state

	var rows []string
	if m.banner != "" {
		rows = append(rows, m.banner)
	}

	clock := clockStyle.Foreground(statusColors[st.Status.String()]).Render(st.Clock())
	rows = append(rows,
		clock,
		m.bar.ViewAs(st.Progress),
		labelStyle.Render(st.Label),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top,
			renderButton("s", "Start", st.Buttons.Start), " ",
			renderButton("p", "Pause", st.Buttons.Pause), " ",
			renderButton("r", "Reset", st.Buttons.Reset),
		),
		m.presetRow(st.Busy),
	)

	if m.opts.Verbose {
		rows = append(rows, secondaryStyle.Render(fmt.Sprintf("progress %.3f  ring offset %.2f", st.Progress, st.Offset)))
	}
	if m.heard != "" {
		rows = append(rows, secondaryStyle.Render("[voice] "+m.heard))
	}
	if m.err != nil {
		rows = append(rows, errorStyle.Render(m.err.Error()))
	}
	rows = append(rows, "", m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Center, rows...)
}

func (m model) presetRow(busy bool) string {
	parts := make([]string, 0, len(m.opts.Presets))
	for i, p := range m.opts.Presets {
		parts = append(parts, fmt.Sprintf("%d·%dm", i+1, p))
	}
	row := presetStyle.Render(strings.Join(parts, "  "))
	if busy {
		row += secondaryStyle.Render("  (updating)")
	}
	return row
}

func renderButton(hotkey, label string, enabled bool) string {
	text := "[" + hotkey + "] " + label
	if !enabled {
		return disabledButtonStyle.Render(text)
	}
	return buttonStyle.Render(text)
}
