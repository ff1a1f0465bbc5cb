package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the menu bar, the active tab body and the status bar.
func ComposeLayout(menuBar, body, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, body, statusBar)
}

// Columns joins panels side by side, top aligned.
func Columns(panels ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
}

// Rows stacks panels, left aligned.
func Rows(panels ...string) string {
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

// Split divides total into n widths that sum to total, the remainder going
// to the last.
func Split(total, n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	each := total / n
	for i := range out {
		out[i] = each
	}
	out[n-1] += total - each*n
	return out
}
