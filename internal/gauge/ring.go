package gauge

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tune-dash.klederson.com/internal/config"
)

// RenderRing draws a closed ring filled clockwise from north to progress
// (0-1), the percentage in the middle and caption underneath. The result is
// exactly height lines of width cells, or "" when the area is too small.
func RenderRing(width, height int, progress float64, caption string) string {
	if width < 10 || height < 5 {
		return ""
	}
	progress = math.Max(0, math.Min(progress, 1))

	faceH := height - 1
	centerX := width / 2
	centerY := faceH / 2
	radius := math.Min(float64(centerX-1), float64(centerY)/config.AspectRatio)
	if radius < 2 {
		radius = 2
	}

	// Percentage label overlaid on the hub row.
	label := fmt.Sprintf("%.0f%%", progress*100)
	labelCol := centerX - len(label)/2

	var sb strings.Builder
	for row := 0; row < faceH; row++ {
		for col := 0; col < width; col++ {
			if row == centerY && col >= labelCol && col < labelCol+len(label) {
				sb.WriteString(styleReadout.Render(string(label[col-labelCol])))
				continue
			}
			sb.WriteString(ringCell(col, row, centerX, centerY, radius, progress))
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleCaption.Render(caption)))
	return sb.String()
}

func ringCell(col, row, centerX, centerY int, radius, progress float64) string {
	dist := CellDistance(col, row, centerX, centerY)
	if math.Abs(dist-radius) >= 0.8 {
		if dist < radius-0.8 && (col+row)%4 == 0 {
			return styleDot.Render(".")
		}
		return " "
	}
	angle := CellAngle(col, row, centerX, centerY)
	if progress > 0 && angle <= progress*2*math.Pi {
		return styleLit.Render("#")
	}
	return styleRing.Render(string(ArcChar(angle)))
}
