package telemetry

import "sync"

// Source produces the current reading on demand. Sample must not block and
// always succeeds; each call is independent and reflects "now". Sources are
// read concurrently by the recorder and the performance tracker.
type Source interface {
	Sample() Reading
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() Reading

// Sample calls f.
func (f SourceFunc) Sample() Reading { return f() }

// Scripted replays a fixed sequence of readings, one per Sample call, and
// then keeps returning the last one.
type Scripted struct {
	mu       sync.Mutex
	readings []Reading
	pos      int
	calls    int
}

// NewScripted creates a Scripted source. With no readings it returns the
// zero Reading.
func NewScripted(readings ...Reading) *Scripted {
	return &Scripted{readings: readings}
}

// Speeds builds a Scripted source whose readings differ only in speed.
func Speeds(kmh ...float64) *Scripted {
	rs := make([]Reading, len(kmh))
	for i, v := range kmh {
		rs[i] = Reading{SpeedKmh: v}
	}
	return NewScripted(rs...)
}

// Sample returns the next scripted reading.
func (s *Scripted) Sample() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.readings) == 0 {
		return Reading{}
	}
	r := s.readings[s.pos]
	if s.pos < len(s.readings)-1 {
		s.pos++
	}
	return r
}

// Calls returns how many times Sample has been called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Link reports whether the vehicle adapter is connected.
type Link interface {
	Connected() bool
}

// Gated only refreshes from the wrapped source while the link is connected.
// While disconnected it keeps returning the last reading it obtained.
type Gated struct {
	src  Source
	link Link

	mu   sync.Mutex
	last Reading
}

// NewGated wraps src behind link.
func NewGated(src Source, link Link) *Gated {
	return &Gated{src: src, link: link}
}

// Sample returns a fresh reading while connected, else the held one.
func (g *Gated) Sample() Reading {
	if !g.link.Connected() {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.last
	}
	r := g.src.Sample()
	g.mu.Lock()
	g.last = r
	g.mu.Unlock()
	return r
}
