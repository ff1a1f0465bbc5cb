package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Field is one label/value row.
type Field struct {
	Label string
	Value string
}

// RenderFields renders label/value rows with the labels padded to a column.
func RenderFields(fields []Field) []string {
	labelW := 0
	for _, f := range fields {
		labelW = max(labelW, len(f.Label))
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		label := StyleLabel.Render(fmt.Sprintf("  %-*s  ", labelW, f.Label))
		lines = append(lines, label+StyleValue.Render(f.Value))
	}
	return lines
}

// RenderBar draws a horizontal bar filled to frac (0-1) in the given color.
func RenderBar(frac float64, width int, color lipgloss.Color) string {
	if width < 1 {
		return ""
	}
	frac = math.Max(0, math.Min(frac, 1))
	filled := int(math.Round(frac * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

// LevelColor picks green, amber or red for frac against warn and alarm
// thresholds.
func LevelColor(frac, warn, alarm float64) lipgloss.Color {
	switch {
	case frac >= alarm:
		return ColorError
	case frac >= warn:
		return ColorWarning
	default:
		return ColorNeonGreen
	}
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width values scaled between their min and max.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	rng := maxV - minV
	if rng == 0 {
		rng = 1
	}

	var sb strings.Builder
	for _, v := range values {
		idx := int((v - minV) / rng * float64(len(sparkChars)-1))
		idx = max(0, min(idx, len(sparkChars)-1))
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}

// FormatAge renders how long ago t was relative to now.
func FormatAge(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh ago", int(d.Hours()))
}

// Truncate shortens s to at most w runes.
func Truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:max(w, 0)])
	}
	return string(r[:w-1]) + "…"
}
