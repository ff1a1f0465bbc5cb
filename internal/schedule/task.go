// Package schedule runs cancellable repeating actions on a clock.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"

	"tune-dash.klederson.com/internal/clock"
)

// Task invokes a function once per period until stopped. A tick that arrives
// while the previous invocation is still running is skipped, never queued.
type Task struct {
	mu      sync.Mutex
	stopped bool
	done    chan struct{}

	ticker  clock.Ticker
	period  time.Duration
	fn      func(now time.Time)
	running atomic.Bool
	ticks   atomic.Int64
	skipped atomic.Int64
}

// Every starts a Task calling fn every period on c. The ticker is armed
// before Every returns.
func Every(c clock.Clock, period time.Duration, fn func(now time.Time)) *Task {
	t := &Task{
		done:   make(chan struct{}),
		ticker: c.NewTicker(period),
		period: period,
		fn:     fn,
	}
	go t.loop()
	return t
}

func (t *Task) loop() {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case now := <-t.ticker.C():
			if !t.begin() {
				continue
			}
			go t.invoke(now)
		}
	}
}

// begin claims the next invocation. It fails once Stop has been called or
// while the previous invocation is still in flight.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		return false
	}
	return true
}

func (t *Task) invoke(now time.Time) {
	t.fn(now)
	t.running.Store(false)
	t.ticks.Add(1)
}

// Stop cancels the task. No invocation begins after Stop returns; one already
// in flight runs to completion. Stop is safe to call from within fn and
// reports whether the task was still running.
func (t *Task) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	close(t.done)
	return true
}

// Stopped reports whether Stop has been called.
func (t *Task) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Period returns the tick period.
func (t *Task) Period() time.Duration { return t.period }

// Ticks returns the number of completed invocations.
func (t *Task) Ticks() int64 { return t.ticks.Load() }

// Skipped returns the number of ticks dropped because an invocation was
// still running.
func (t *Task) Skipped() int64 { return t.skipped.Load() }
