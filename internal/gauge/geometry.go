package gauge

import (
	"math"

	"tune-dash.klederson.com/internal/config"
)

// CellDistance computes the distance from a cell to the dial center,
// accounting for terminal aspect ratio.
func CellDistance(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

// CellAngle computes the angle from center to a cell.
// Returns radians in [0, 2π), where 0=north, increasing clockwise.
func CellAngle(col, row, centerX, centerY int) float64 {
	dx := float64(col - centerX)
	dy := float64(row-centerY) / config.AspectRatio
	angle := math.Atan2(dx, -dy) // 0=north, clockwise
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle
}

// ArcChar returns the character tracing a circle at the given angle.
func ArcChar(angle float64) rune {
	sector := int(math.Round(NormalizeAngle(angle)/(math.Pi/4))) % 8
	switch sector {
	case 0, 4: // N, S
		return '-'
	case 1, 5: // NE, SW
		return '\\'
	case 2, 6: // E, W
		return '|'
	case 3, 7: // SE, NW
		return '/'
	default:
		return '.'
	}
}

// RayChar returns the character drawing a line from the center outwards
// at the given angle.
func RayChar(angle float64) rune {
	return ArcChar(angle + math.Pi/2)
}

// TipChar returns the arrowhead for a ray pointing at angle.
func TipChar(angle float64) rune {
	sector := int(math.Round(NormalizeAngle(angle)/(math.Pi/4))) % 8
	switch sector {
	case 0: // N
		return '^'
	case 2: // E
		return '>'
	case 4: // S
		return 'v'
	case 6: // W
		return '<'
	default:
		return RayChar(angle)
	}
}

// NormalizeAngle wraps an angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// AngleDiff returns the shortest angular distance between two angles.
// Result is in [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeAngle(a) - NormalizeAngle(b))
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// signed maps an angle to (-π, π], negative west of north.
func signed(a float64) float64 {
	a = NormalizeAngle(a)
	if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func halfArc() float64 {
	return config.DialArcDeg * math.Pi / 360
}

// ValueAngle maps value in [0, max] onto the dial face, a symmetric arc
// around north opening at the bottom. The result is signed: the minimum sits
// at -DialArcDeg/2. Out of range values are clamped.
func ValueAngle(value, max float64) float64 {
	frac := 0.0
	if max > 0 {
		frac = math.Max(0, math.Min(value/max, 1))
	}
	return -halfArc() + frac*2*halfArc()
}

// OnArc reports whether angle lies on the dial face.
func OnArc(angle float64) bool {
	return math.Abs(signed(angle)) <= halfArc()+1e-9
}

// ArcFraction returns how far along the dial face angle lies, 0 at the
// minimum and 1 at the maximum. Angles off the face are clamped.
func ArcFraction(angle float64) float64 {
	f := (signed(angle) + halfArc()) / (2 * halfArc())
	return math.Max(0, math.Min(f, 1))
}
