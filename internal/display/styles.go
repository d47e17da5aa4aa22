package display

import "github.com/charmbracelet/lipgloss"

var (
	// BannerStyle is the muted slate used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2)

	statusColors = map[string]lipgloss.Color{
		"ready":    lipgloss.Color("#d4d4d8"),
		"running":  lipgloss.Color("#bbf7d0"),
		"paused":   lipgloss.Color("#fde68a"),
		"finished": lipgloss.Color("#fca5a5"),
	}

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4e7")).
			Background(lipgloss.Color("#3f3f46")).
			Padding(0, 1)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#52525b")).
				Background(lipgloss.Color("#27272a")).
				Padding(0, 1)

	presetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#fca5a5")).
			Padding(1, 4).
			Align(lipgloss.Center)

	dialogTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#fca5a5"))
)
