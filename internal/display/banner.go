package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the banner art horizontally centred for the
// current terminal width. To change the banner just replace banner.txt.
func RenderBanner() string {
	return centerBanner(bannerRaw, termWidth())
}

func centerBanner(raw string, width int) string {
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")

	// Box-drawing runes are multi-byte, so measure display cells.
	maxW := 0
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > maxW {
			maxW = w
		}
	}

	pad := 0
	if width > maxW {
		pad = (width - maxW) / 2
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the current terminal column count, or 80 as fallback.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
