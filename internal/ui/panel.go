package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPanel wraps lines in a titled border of exactly width by height
// cells. Lines beyond the inner height are dropped.
func RenderPanel(title string, width, height int, lines []string, active bool) string {
	innerW := width - 4
	if innerW < 4 {
		innerW = 4
	}
	innerH := height - 2
	if innerH < 1 {
		innerH = 1
	}

	all := make([]string, 0, innerH)
	if title != "" {
		all = append(all,
			StylePanelTitle.Render(title),
			StyleSeparator.Render(strings.Repeat("-", innerW)),
		)
	}
	all = append(all, lines...)
	if len(all) > innerH {
		all = all[:innerH]
	}
	for i, l := range all {
		all[i] = clampWidth(l, innerW)
	}
	for len(all) < innerH {
		all = append(all, "")
	}

	sty := StylePanelBorder
	if active {
		sty = StylePanelActive
	}
	rendered := sty.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))

	// lipgloss Height() only sets a minimum; it won't truncate overflow.
	out := strings.Split(rendered, "\n")
	if len(out) > height {
		out = out[:height]
	}
	for len(out) < height {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

// clampWidth truncates a styled line to w cells.
func clampWidth(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(w).Render(s)
}
