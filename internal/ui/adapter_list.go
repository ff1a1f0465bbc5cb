package ui

import (
	"fmt"
	"strings"
	"time"

	"tune-dash.klederson.com/internal/bluetooth"
)

// RenderAdapterList renders the scrollable list of discovered adapters with
// the cursor row highlighted and the linked adapter marked.
func RenderAdapterList(adapters []bluetooth.Adapter, width, height, cursor int, linkedMAC string, now time.Time) string {
	innerW := max(width-4, 10)
	innerH := max(height-4, 1) // border plus title and separator

	obd := 0
	for _, a := range adapters {
		if a.OBD {
			obd++
		}
	}
	title := fmt.Sprintf("ADAPTERS [%d OBD / %d]", obd, len(adapters))

	var lines []string
	if len(adapters) == 0 {
		lines = append(lines,
			"",
			StyleHelp.Render(" No adapters..."),
			StyleHelp.Render(" Waiting for scan"),
		)
		return RenderPanel(title, width, height, lines, false)
	}

	const linesPerAdapter = 3 // 2 content + 1 blank
	maxVisible := max(innerH/linesPerAdapter, 1)

	// Keep the cursor inside the viewport.
	viewStart := 0
	if cursor >= maxVisible {
		viewStart = cursor - maxVisible + 1
	}
	for i := viewStart; i < len(adapters) && i < viewStart+maxVisible; i++ {
		a := adapters[i]
		lines = append(lines, renderAdapterEntry(&a, innerW, i == cursor, a.MAC == linkedMAC, now)...)
	}
	return RenderPanel(title, width, height, lines, true)
}

func renderAdapterEntry(a *bluetooth.Adapter, maxW int, isCursor, isLinked bool, now time.Time) []string {
	marker := "  "
	if isCursor {
		marker = ">>"
	}
	link := " "
	if isLinked {
		link = "@"
	}
	tag := "   "
	if a.OBD {
		tag = "OBD"
	}
	bars := strings.Repeat("|", a.SignalBars()) + strings.Repeat(".", 4-a.SignalBars())

	name := Truncate(a.DisplayName(), max(maxW-20, 4))
	raw1 := fmt.Sprintf("%s %s %s %s", marker, link, tag, name)
	raw2 := fmt.Sprintf("       %s %s %ddBm %s", a.MAC, bars, int(a.RSSI), FormatAge(now, a.LastSeen))

	if isCursor {
		return []string{
			StyleCursorLine.Render(padRaw(raw1, maxW)),
			StyleCursorLine.Render(padRaw(raw2, maxW)),
			"",
		}
	}

	tagStyled := StyleHelp.Render(tag)
	if a.OBD {
		tagStyled = StyleAdapterOBD.Render(tag)
	}
	line1 := fmt.Sprintf("%s %s %s %s", marker, StyleWarning.Render(link), tagStyled, StyleAdapterName.Render(name))
	line2 := "       " + StyleAdapterMAC.Render(a.MAC) + " " +
		StyleValue.Render(bars) + " " +
		StyleLabel.Render(fmt.Sprintf("%ddBm %s", int(a.RSSI), FormatAge(now, a.LastSeen)))
	return []string{line1, line2, ""}
}

// padRaw pads or truncates a raw string to exactly w characters.
func padRaw(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}
