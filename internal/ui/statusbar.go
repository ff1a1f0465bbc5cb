package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status is the information shown in the bottom bar.
type Status struct {
	Recording bool
	Entries   int
	Skipped   int64
	Test      string // Running test label, "" when idle
	Message   string // Transient notice, e.g. an export path
	Help      string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, s Status) string {
	rec := StyleStatusIdle.Render("[IDLE]")
	if s.Recording {
		rec = StyleStatusRecording.Render("[REC]")
	}

	info := fmt.Sprintf(" Entries: %d", s.Entries)
	if s.Skipped > 0 {
		info += fmt.Sprintf("  Skipped: %d", s.Skipped)
	}
	content := rec + StyleStatusBar.Foreground(ColorGreen).Render(info)
	if s.Test != "" {
		content += "  " + StyleStatusRunning.Render("TIMING "+s.Test)
	}
	if s.Message != "" {
		content += "  " + StyleWarning.Render(s.Message)
	}

	right := StyleHelp.Render(s.Help)
	gap := width - lipgloss.Width(content) - lipgloss.Width(right) - 2
	if gap < 1 {
		// No room for the key help.
		right = ""
		gap = width - lipgloss.Width(content) - 2
	}
	if gap < 0 {
		gap = 0
	}
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap) + right)
}
