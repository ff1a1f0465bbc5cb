// Package recorder accumulates timestamped telemetry readings at a fixed
// cadence while a recording session is active.
package recorder

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/schedule"
	"tune-dash.klederson.com/internal/telemetry"
)

// Entry is one recorded reading and the time it was taken.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Reading   telemetry.Reading `json:"reading"`
}

// EventKind identifies a session state change.
type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	EventCleared
	EventAppended
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventCleared:
		return "cleared"
	case EventAppended:
		return "appended"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Entry is set for EventAppended only.
type Event struct {
	Kind  EventKind
	Entry Entry
}

// Session is a recording session. It is created inactive and holds its
// entries across stop/start cycles until Clear. All methods are safe for
// concurrent use.
type Session struct {
	id     string
	clk    clock.Clock
	src    telemetry.Source
	period time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	active  bool
	gen     uint64 // bumped on every Start; ticks of older tasks are ignored
	entries []Entry
	task    *schedule.Task
	ticks   int64 // completed ticks of earlier tasks
	skipped int64

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewSession creates an inactive session sampling src every period. A zero
// period falls back to config.SamplePeriod; a nil logger disables logging.
func NewSession(src telemetry.Source, c clock.Clock, period time.Duration, log *zap.Logger) *Session {
	if period <= 0 {
		period = config.SamplePeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		clk:    c,
		src:    src,
		period: period,
		log:    log.With(zap.String("session", id)),
		subs:   make(map[int]func(Event)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Period returns the sampling period.
func (s *Session) Period() time.Duration { return s.period }

// Start begins periodic sampling. It is a no-op if already active.
func (s *Session) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.gen++
	gen := s.gen
	s.task = schedule.Every(s.clk, s.period, func(now time.Time) { s.sample(gen, now) })
	s.mu.Unlock()

	s.log.Info("recording started", zap.Duration("period", s.period))
	s.publish(Event{Kind: EventStarted})
}

// Stop halts sampling. It is a no-op if inactive. Entries are kept.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.task.Stop()
	s.ticks += s.task.Ticks()
	s.skipped += s.task.Skipped()
	s.task = nil
	n := len(s.entries)
	s.mu.Unlock()

	s.log.Info("recording stopped", zap.Int("entries", n))
	s.publish(Event{Kind: EventStopped})
}

// Clear discards all entries regardless of state.
func (s *Session) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	s.log.Debug("recording cleared")
	s.publish(Event{Kind: EventCleared})
}

// Active reports whether the session is sampling.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Entries returns a copy of the recorded entries in chronological order.
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of recorded entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Last returns the most recent entry, if any.
func (s *Session) Last() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Ticks returns how many sampling ticks have completed.
func (s *Session) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ticks
	if s.task != nil {
		n += s.task.Ticks()
	}
	return n
}

// Skipped returns how many ticks were dropped because the previous sample
// was still running.
func (s *Session) Skipped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.skipped
	if s.task != nil {
		n += s.task.Skipped()
	}
	return n
}

// Subscribe registers fn for session events and returns a function that
// removes it. Callbacks run outside the session lock on the goroutine that
// caused the event and must not block.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// sample pulls one reading and appends it. The reading is taken outside the
// lock; the append is dropped if the session stopped (or restarted) meanwhile.
func (s *Session) sample(gen uint64, now time.Time) {
	r := s.src.Sample()

	s.mu.Lock()
	if !s.active || s.gen != gen {
		s.mu.Unlock()
		return
	}
	if n := len(s.entries); n > 0 && now.Before(s.entries[n-1].Timestamp) {
		now = s.entries[n-1].Timestamp
	}
	e := Entry{Timestamp: now, Reading: r}
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	s.publish(Event{Kind: EventAppended, Entry: e})
}
