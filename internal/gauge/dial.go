// Package gauge draws analog instruments (dials and progress rings) as
// styled terminal text.
package gauge

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tune-dash.klederson.com/internal/config"
)

var (
	colorBright  = lipgloss.Color("#00FF41")
	colorMid     = lipgloss.Color("#008F11")
	colorDim     = lipgloss.Color("#004A0A")
	colorRedline = lipgloss.Color("#FF3300")
	colorNeedle  = lipgloss.Color("#FFAA00")

	styleHub     = lipgloss.NewStyle().Foreground(colorNeedle).Bold(true)
	styleNeedle  = lipgloss.NewStyle().Foreground(colorNeedle).Bold(true)
	styleLit     = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleRing    = lipgloss.NewStyle().Foreground(colorMid)
	styleTick    = lipgloss.NewStyle().Foreground(colorMid)
	styleDot     = lipgloss.NewStyle().Foreground(colorDim)
	styleRedline = lipgloss.NewStyle().Foreground(colorRedline).Bold(true)
	styleReadout = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleCaption = lipgloss.NewStyle().Foreground(colorMid)
)

// Dial describes a gauge face.
type Dial struct {
	Label   string
	Unit    string
	Max     float64
	Redline float64 // Start of the red zone; 0 disables it
	Format  string  // Readout verb, "%.0f" when empty
}

// Render draws the dial face with needle n, the readout for value and the
// label underneath. The result is exactly height lines of width cells, or
// "" when the area is too small.
func (d Dial) Render(width, height int, value float64, n *Needle) string {
	if width < 10 || height < 5 {
		return ""
	}

	faceH := height - 2
	centerX := width / 2
	// The face opens at the bottom, so the hub sits below the middle.
	radius := math.Min(float64(centerX-1), float64(faceH-1)/(1.71*config.AspectRatio))
	if radius < 2 {
		radius = 2
	}
	centerY := int(math.Round(radius * config.AspectRatio))

	var sb strings.Builder
	for row := 0; row < faceH; row++ {
		for col := 0; col < width; col++ {
			sb.WriteString(d.cell(col, row, centerX, centerY, radius, n))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, d.readout(value)))
	sb.WriteByte('\n')
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleCaption.Render(d.Label)))
	return sb.String()
}

func (d Dial) readout(value float64) string {
	format := d.Format
	if format == "" {
		format = "%.0f"
	}
	s := fmt.Sprintf(format, value)
	if d.Unit != "" {
		s += " " + d.Unit
	}
	if d.inRedline(value / d.Max) {
		return styleRedline.Render(s)
	}
	return styleReadout.Render(s)
}

func (d Dial) inRedline(frac float64) bool {
	return d.Redline > 0 && d.Max > 0 && frac >= d.Redline/d.Max
}

func (d Dial) cell(col, row, centerX, centerY int, radius float64, n *Needle) string {
	if col == centerX && row == centerY {
		return styleHub.Render("o")
	}

	dist := CellDistance(col, row, centerX, centerY)
	angle := CellAngle(col, row, centerX, centerY)

	if dist < radius-1 && AngleDiff(angle, n.Angle)*dist < 0.6 {
		ch := RayChar(n.Angle)
		if dist >= radius-3 {
			ch = TipChar(n.Angle)
		}
		return styleNeedle.Render(string(ch))
	}

	if !OnArc(angle) {
		return " "
	}

	if math.Abs(dist-radius) < 0.8 {
		ch := string(ArcChar(angle))
		frac := ArcFraction(angle)
		switch {
		case d.inRedline(frac):
			return styleRedline.Render(ch)
		case frac <= ArcFraction(n.Angle):
			return styleLit.Render(ch)
		default:
			return styleRing.Render(ch)
		}
	}

	if dist >= radius-2 && dist < radius-0.8 {
		for i := 0; i <= config.DialTicks; i++ {
			if AngleDiff(angle, ValueAngle(float64(i), config.DialTicks))*dist < 0.5 {
				return styleTick.Render("·")
			}
		}
	}

	if dist < radius {
		if c := glowColor(n.Intensity(angle)); c != "" {
			return lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render(".")
		}
	}
	return " "
}

func glowColor(intensity float64) string {
	if intensity <= 0 {
		return ""
	}
	if intensity > 0.8 {
		return "#00FF41"
	}
	if intensity > 0.5 {
		return "#00CC33"
	}
	if intensity > 0.3 {
		return "#00AA22"
	}
	return "#005511"
}
