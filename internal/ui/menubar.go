package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tune-dash.klederson.com/internal/config"
)

// RenderMenuBar renders the top bar: title, tabs and the adapter link state.
func RenderMenuBar(width int, tabs []string, active int, link string, connected bool) string {
	title := StyleMenuKey.Render(fmt.Sprintf("%s v%s", config.AppName, config.AppVersion))

	var tabBar strings.Builder
	for i, t := range tabs {
		label := fmt.Sprintf("%d:%s", i+1, t)
		if i == active {
			tabBar.WriteString(StyleTabActive.Render(label))
		} else {
			tabBar.WriteString(StyleTabInactive.Render(label))
		}
	}

	status := StyleError.Render("DISCONNECTED")
	if connected {
		status = StyleMenuKey.Render("CONNECTED")
	}
	if link != "" {
		status += "  " + StyleMenuLabel.Render(link)
	}

	left := title + "  " + tabBar.String()
	right := status + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
