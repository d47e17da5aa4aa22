package conversation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/hammamikhairi/pomo/internal/view"
)

// LineRenderer prints each rendered view as a single status line.
type LineRenderer struct {
	printFn PrintFunc
	bar     progress.Model
}

// NewLineRenderer creates a renderer. If printFn is nil, fmt.Printf is used.
func NewLineRenderer(printFn PrintFunc) *LineRenderer {
	return &LineRenderer{
		printFn: orPrintf(printFn),
		bar:     progress.New(progress.WithWidth(20), progress.WithoutPercentage(), progress.WithSolidFill("#E06C75")),
	}
}

// Render prints st.
func (r *LineRenderer) Render(st view.State) {
	r.printFn("%s", FormatLine(st, r.bar.ViewAs(st.Progress)))
}

// FormatLine lays out one status line around an already drawn bar.
func FormatLine(st view.State, bar string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s%s %s %3.0f%%  %s", bold, st.Clock(), reset, bar, st.Progress*100, st.Label)
	if st.Busy {
		b.WriteString(" (updating)")
	}
	fmt.Fprintf(&b, "  [%s]", controls(st.Buttons))
	return b.String()
}

func controls(btn view.Buttons) string {
	var parts []string
	if btn.Start {
		parts = append(parts, "start")
	}
	if btn.Pause {
		parts = append(parts, "pause")
	}
	if btn.Reset {
		parts = append(parts, "reset")
	}
	return strings.Join(parts, " ")
}
