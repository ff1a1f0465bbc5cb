package gauge

import (
	"math"

	"tune-dash.klederson.com/internal/config"
)

// Needle is a dial pointer that eases towards its target instead of
// jumping, so once-a-second readings still animate at the frame rate.
type Needle struct {
	Angle  float64 // Signed radians from north, see ValueAngle
	target float64
}

// NewNeedle creates a needle resting at the dial minimum.
func NewNeedle() *Needle {
	a := ValueAngle(0, 1)
	return &Needle{Angle: a, target: a}
}

// Set moves the target to value on a dial of the given full scale.
func (n *Needle) Set(value, max float64) {
	n.target = ValueAngle(value, max)
}

// Update advances the needle one frame towards its target.
func (n *Needle) Update() {
	d := n.target - n.Angle
	if math.Abs(d) < 1e-3 {
		n.Angle = n.target
		return
	}
	n.Angle += d * config.NeedleEase
}

// Settled reports whether the needle has reached its target.
func (n *Needle) Settled() bool {
	return n.Angle == n.target
}

// Degrees returns the needle angle in degrees, negative west of north.
func (n *Needle) Degrees() float64 {
	return n.Angle * 180 / math.Pi
}

// Intensity returns the glow intensity [0, 1] the needle casts on a cell
// at cellAngle: 1 under the needle, fading to 0 NeedleGlow degrees away.
func (n *Needle) Intensity(cellAngle float64) float64 {
	diff := AngleDiff(n.Angle, cellAngle)
	glow := config.NeedleGlow * math.Pi / 180
	if diff > glow {
		return 0
	}
	return 1 - diff/glow
}
