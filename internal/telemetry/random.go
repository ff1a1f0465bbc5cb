package telemetry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"tune-dash.klederson.com/internal/clock"
)

// RandomSource is the stand-in for a real adapter: every call draws each
// field independently and uniformly from a plausible range.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a RandomSource. A zero seed uses the current time.
func NewRandomSource(seed int64) *RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws a fresh reading.
func (s *RandomSource) Sample() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Reading{
		RPM:           800 + s.rng.Intn(3500-800+1),
		SpeedKmh:      s.uniform(0, 120),
		ThrottlePct:   s.uniform(0, 100),
		MAFGramsPerS:  s.uniform(10, 20),
		O2Volts:       s.uniform(0.8, 1.1),
		TimingDegrees: s.uniform(10, 18),
	}
}

func (s *RandomSource) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Simulator produces a continuous drive: throttle swells and fades on a slow
// sine cycle with noise, speed integrates the resulting acceleration, and RPM
// follows speed through a simple gearbox. Unlike RandomSource it lets the
// performance tests reach their thresholds.
type Simulator struct {
	mu    sync.Mutex
	clk   clock.Clock
	rng   *rand.Rand
	last  time.Time
	t     float64 // seconds since start
	phase float64
	speed float64
}

// Gear ratios expressed as km/h per 1000 rpm.
var simGears = []float64{8, 14, 21, 29, 37, 46}

const (
	simIdleRPM  = 800
	simShiftRPM = 6500
	simMaxSpeed = 250.0
)

// NewSimulator creates a Simulator on the given clock. A zero seed uses the
// current time.
func NewSimulator(c clock.Clock, seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Simulator{
		clk:   c,
		rng:   rng,
		last:  c.Now(),
		phase: rng.Float64() * 2 * math.Pi,
	}
}

// Sample advances the simulation to the current clock time and returns the
// resulting reading.
func (s *Simulator) Sample() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	dt := now.Sub(s.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	s.last = now
	s.t += dt

	// Throttle cycle: roughly 40 s per pull-and-coast, plus jitter.
	throttle := 55 + 45*math.Sin(s.t*2*math.Pi/40+s.phase) + (s.rng.Float64()-0.5)*6
	throttle = clamp(throttle, 0, 100)

	// km/h per second: up to ~14 at full throttle, drag grows with speed.
	accel := throttle/100*14 - 2 - s.speed*s.speed/6000
	s.speed = clamp(s.speed+accel*dt, 0, simMaxSpeed)

	rpm := simRPM(s.speed)
	maf := 2 + float64(rpm)/1000*throttle/100*9 + s.rng.Float64()
	return Reading{
		RPM:           rpm,
		SpeedKmh:      s.speed,
		ThrottlePct:   throttle,
		MAFGramsPerS:  maf,
		O2Volts:       0.8 + s.rng.Float64()*0.3,
		TimingDegrees: 18 - throttle/100*8 + s.rng.Float64(),
	}
}

// simRPM picks the lowest gear that keeps the engine under the shift point.
func simRPM(speed float64) int {
	for _, ratio := range simGears {
		rpm := speed / ratio * 1000
		if rpm <= simShiftRPM {
			return max(simIdleRPM, int(rpm))
		}
	}
	top := simGears[len(simGears)-1]
	return int(speed / top * 1000)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
