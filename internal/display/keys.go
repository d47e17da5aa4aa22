package display

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start   key.Binding
	Pause   key.Binding
	Reset   key.Binding
	Preset  key.Binding
	Dismiss key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Preset: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "preset"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter", "dismiss"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Reset, k.Preset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Reset},
		{k.Preset, k.Dismiss},
		{k.Help, k.Quit},
	}
}

// dialogKeys is the help shown while the alert dialog is up.
type dialogKeys struct{ keyMap }

func (k dialogKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Dismiss, k.Quit}
}

func (k dialogKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
