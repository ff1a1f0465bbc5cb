// Package perf times drag-style performance tests: it polls the telemetry
// source from a trigger until a per-kind stop condition holds, then derives
// the average acceleration over the run.
package perf

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/schedule"
	"tune-dash.klederson.com/internal/telemetry"
)

var (
	// ErrInvalidState is returned when a test is started while one is running.
	ErrInvalidState = errors.New("perf: test already running")

	// ErrNoCompletedRun is returned when a result is requested while a test
	// is running or before any test has finished.
	ErrNoCompletedRun = errors.New("perf: no completed run")

	// ErrDivisionUndefined is returned when a completed run has zero elapsed
	// time.
	ErrDivisionUndefined = errors.New("perf: elapsed time is zero")

	// ErrUnknownKind is returned for an unrecognised test kind.
	ErrUnknownKind = errors.New("perf: unknown test kind")
)

// Run is the state of the current or most recent test.
type Run struct {
	Kind         Kind          `json:"kind"`
	StartTime    time.Time     `json:"start_time"` // zero before the first test
	StartSpeed   float64       `json:"start_speed_kmh"`
	EndSpeed     float64       `json:"end_speed_kmh"`
	CurrentSpeed float64       `json:"current_speed_kmh"`
	Elapsed      time.Duration `json:"elapsed"`
	Active       bool          `json:"active"`
}

// ElapsedSeconds returns Elapsed in seconds.
func (r Run) ElapsedSeconds() float64 { return r.Elapsed.Seconds() }

// Started reports whether the run has ever been started.
func (r Run) Started() bool { return !r.StartTime.IsZero() }

// Completed reports whether the run has finished and holds a result.
func (r Run) Completed() bool { return r.Started() && !r.Active }

// ReachedTarget reports whether a finished run met its kind's stop
// condition, as opposed to being stopped early by hand.
func (r Run) ReachedTarget() bool {
	return r.Completed() && r.Kind.ShouldStop(r.EndSpeed, r.ElapsedSeconds())
}

// Progress returns the elapsed fraction of a ten second window, capped at 1.
func (r Run) Progress() float64 {
	return math.Min(r.ElapsedSeconds()/config.RollingRaceSeconds, 1)
}

// AverageAcceleration returns the mean acceleration over the run in m/s².
func (r Run) AverageAcceleration() (float64, error) {
	if !r.Completed() {
		return 0, ErrNoCompletedRun
	}
	if r.Elapsed == 0 {
		return 0, ErrDivisionUndefined
	}
	return (r.EndSpeed - r.StartSpeed) * config.KmhToMetersPerSecond / r.ElapsedSeconds(), nil
}

// UpdateKind identifies a tracker state change.
type UpdateKind int

const (
	UpdateStarted UpdateKind = iota
	UpdateProgress
	UpdateFinished
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateStarted:
		return "started"
	case UpdateProgress:
		return "progress"
	case UpdateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Update is delivered to subscribers with a copy of the run.
type Update struct {
	Kind UpdateKind
	Run  Run
}

// Tracker runs one timed test at a time. The last result stays readable
// until the next test starts. All methods are safe for concurrent use.
type Tracker struct {
	clk    clock.Clock
	src    telemetry.Source
	period time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	run   Run
	gen   uint64
	task  *schedule.Task
	polls int64 // completed polls of earlier tasks

	subMu   sync.Mutex
	subs    map[int]func(Update)
	nextSub int
}

// NewTracker creates an idle tracker polling src every period. A zero period
// falls back to config.PollPeriod; a nil logger disables logging.
func NewTracker(src telemetry.Source, c clock.Clock, period time.Duration, log *zap.Logger) *Tracker {
	if period <= 0 {
		period = config.PollPeriod
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		clk:    c,
		src:    src,
		period: period,
		log:    log,
		subs:   make(map[int]func(Update)),
	}
}

// Period returns the poll period.
func (t *Tracker) Period() time.Duration { return t.period }

// StartTracking begins a test of the given kind from the current speed.
// It returns ErrInvalidState, leaving the running test untouched, if a test
// is already in progress.
func (t *Tracker) StartTracking(kind Kind) error {
	if !kind.Valid() {
		return ErrUnknownKind
	}

	t.mu.Lock()
	if t.run.Active {
		t.mu.Unlock()
		return ErrInvalidState
	}
	speed := t.src.Sample().SpeedKmh
	t.run = Run{
		Kind:         kind,
		StartTime:    t.clk.Now(),
		StartSpeed:   speed,
		CurrentSpeed: speed,
		Active:       true,
	}
	t.gen++
	gen := t.gen
	t.task = schedule.Every(t.clk, t.period, func(now time.Time) { t.poll(gen, now) })
	run := t.run
	t.mu.Unlock()

	t.log.Info("performance test started",
		zap.Stringer("kind", kind),
		zap.Float64("start_speed", speed),
	)
	t.publish(Update{Kind: UpdateStarted, Run: run})
	return nil
}

// StopTracking ends the running test at the current speed. It is a no-op
// when idle.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	if !t.run.Active {
		t.mu.Unlock()
		return
	}
	t.finishLocked(t.src.Sample().SpeedKmh)
	run := t.run
	t.mu.Unlock()

	t.logFinished(run, "stopped")
	t.publish(Update{Kind: UpdateFinished, Run: run})
}

// Run returns a copy of the current or most recent run.
func (t *Tracker) Run() Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run
}

// Active reports whether a test is running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.Active
}

// Polls returns how many poll ticks have completed. A poll that finishes the
// test is not counted.
func (t *Tracker) Polls() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.polls
	if t.task != nil {
		n += t.task.Ticks()
	}
	return n
}

// AverageAcceleration returns the mean acceleration of the last completed
// run in m/s². It fails with ErrNoCompletedRun while a test is running or
// before any has finished, and with ErrDivisionUndefined when the run took
// no measurable time.
func (t *Tracker) AverageAcceleration() (float64, error) {
	return t.Run().AverageAcceleration()
}

// Subscribe registers fn for tracker updates and returns a function that
// removes it. Callbacks run outside the tracker lock and must not block.
func (t *Tracker) Subscribe(fn func(Update)) (unsubscribe func()) {
	t.subMu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

func (t *Tracker) publish(u Update) {
	t.subMu.Lock()
	fns := make([]func(Update), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// poll is one tick: refresh elapsed, read the speed, and finish the test if
// its stop condition holds.
func (t *Tracker) poll(gen uint64, now time.Time) {
	t.mu.Lock()
	if !t.run.Active || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.run.Elapsed = now.Sub(t.run.StartTime)
	speed := t.src.Sample().SpeedKmh
	t.run.CurrentSpeed = speed

	done := t.run.Kind.ShouldStop(speed, t.run.ElapsedSeconds())
	if done {
		t.finishLocked(speed)
	}
	run := t.run
	t.mu.Unlock()

	t.publish(Update{Kind: UpdateProgress, Run: run})
	if done {
		t.logFinished(run, "condition met")
		t.publish(Update{Kind: UpdateFinished, Run: run})
	}
}

// finishLocked cancels the poll and records the end speed. Elapsed keeps the
// value of the last poll. t.mu must be held.
func (t *Tracker) finishLocked(endSpeed float64) {
	t.task.Stop()
	t.polls += t.task.Ticks()
	t.task = nil
	t.run.EndSpeed = endSpeed
	t.run.CurrentSpeed = endSpeed
	t.run.Active = false
}

func (t *Tracker) logFinished(run Run, reason string) {
	fields := []zap.Field{
		zap.Stringer("kind", run.Kind),
		zap.String("reason", reason),
		zap.Duration("elapsed", run.Elapsed),
		zap.Float64("end_speed", run.EndSpeed),
	}
	if accel, err := run.AverageAcceleration(); err == nil {
		fields = append(fields, zap.Float64("avg_accel", accel))
	}
	t.log.Info("performance test finished", fields...)
}
