package perf

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/telemetry"
)

var epoch = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

const (
	waitFor = time.Second
	pollInt = time.Millisecond
)

// step advances one poll period and waits until the poll has completed or
// has finished the test.
func step(t *testing.T, c *clock.Mock, tr *Tracker) {
	t.Helper()
	wantElapsed := tr.Run().Elapsed + tr.Period()
	wantPolls := tr.Polls() + 1
	c.Advance(tr.Period())
	require.Eventually(t, func() bool {
		if tr.Polls() == wantPolls {
			return true
		}
		run := tr.Run()
		return !run.Active && run.Elapsed == wantElapsed
	}, waitFor, pollInt)
}

// runUntilDone steps until the test finishes or max polls pass.
func runUntilDone(t *testing.T, c *clock.Mock, tr *Tracker, max int) int {
	t.Helper()
	for i := 1; i <= max; i++ {
		step(t, c, tr)
		if !tr.Active() {
			return i
		}
	}
	t.Fatalf("test still running after %d polls", max)
	return 0
}

func newTestTracker(src telemetry.Source, period time.Duration) (*Tracker, *clock.Mock) {
	c := clock.NewMock(epoch)
	return NewTracker(src, c, period, nil), c
}

func TestTracker_ZeroToHundredStopsOnFirstQualifyingPoll(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(0, 0, 0, 0, 0, 120), 100*time.Millisecond)

	require.NoError(t, tr.StartTracking(ZeroToHundred))
	polls := runUntilDone(t, c, tr, 20)

	assert.Equal(t, 5, polls)
	run := tr.Run()
	assert.False(t, run.Active)
	assert.Equal(t, 0.0, run.StartSpeed)
	assert.Equal(t, 120.0, run.EndSpeed)
	assert.Equal(t, 500*time.Millisecond, run.Elapsed)
	assert.Equal(t, epoch, run.StartTime)

	accel, err := tr.AverageAcceleration()
	require.NoError(t, err)
	assert.InDelta(t, 120*0.277778/0.5, accel, 1e-9)

	c.Advance(time.Second)
	assert.Never(t, func() bool { return tr.Run().Elapsed != 500*time.Millisecond }, 50*time.Millisecond, pollInt)
}

func TestTracker_StopConditions(t *testing.T) {
	tests := []struct {
		name      string
		kind      Kind
		speeds    []float64
		period    time.Duration
		wantPolls int
	}{
		{
			name:      "100-200 stops at 200",
			kind:      HundredToTwoHundred,
			speeds:    []float64{150, 180, 199, 205},
			period:    100 * time.Millisecond,
			wantPolls: 3,
		},
		{
			name:      "quarter mile uses speed times elapsed",
			kind:      QuarterMile,
			speeds:    []float64{150},
			period:    100 * time.Millisecond,
			wantPolls: 27, // 150 * 2.7 >= 402.336 > 150 * 2.6
		},
		{
			name:      "rolling race stops at ten seconds",
			kind:      RollingRace,
			speeds:    []float64{60},
			period:    time.Second,
			wantPolls: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, c := newTestTracker(telemetry.Speeds(tt.speeds...), tt.period)
			require.NoError(t, tr.StartTracking(tt.kind))
			assert.Equal(t, tt.wantPolls, runUntilDone(t, c, tr, 200))
			assert.Equal(t, tt.kind, tr.Run().Kind)
		})
	}
}

func TestKind_ShouldStop(t *testing.T) {
	tests := []struct {
		kind    Kind
		speed   float64
		elapsed float64
		want    bool
	}{
		{ZeroToHundred, 99.9, 3, false},
		{ZeroToHundred, 100, 3, true},
		{HundredToTwoHundred, 199.9, 8, false},
		{HundredToTwoHundred, 200, 8, true},
		{QuarterMile, 100, 4, false},
		{QuarterMile, 100, 4.1, true},
		{RollingRace, 0, 9.99, false},
		{RollingRace, 0, 10, true},
		{Kind(99), 500, 500, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.ShouldStop(tt.speed, tt.elapsed), "%v speed=%v elapsed=%v", tt.kind, tt.speed, tt.elapsed)
	}
}

func TestTracker_StartWhileRunningLeavesRunUnchanged(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(10, 20, 30), 100*time.Millisecond)

	require.NoError(t, tr.StartTracking(ZeroToHundred))
	step(t, c, tr)
	before := tr.Run()

	err := tr.StartTracking(RollingRace)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, before, tr.Run())

	tr.StopTracking()
}

func TestTracker_AverageAccelerationErrors(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(0, 50), 100*time.Millisecond)

	_, err := tr.AverageAcceleration()
	assert.ErrorIs(t, err, ErrNoCompletedRun, "no run yet")

	require.NoError(t, tr.StartTracking(ZeroToHundred))
	_, err = tr.AverageAcceleration()
	assert.ErrorIs(t, err, ErrNoCompletedRun, "still running")

	// Stopped before the first poll: nothing elapsed.
	tr.StopTracking()
	_, err = tr.AverageAcceleration()
	assert.ErrorIs(t, err, ErrDivisionUndefined)
	assert.Equal(t, 50.0, tr.Run().EndSpeed)

	c.Advance(time.Second)
	assert.Never(t, tr.Active, 50*time.Millisecond, pollInt)
}

func TestRun_AverageAcceleration(t *testing.T) {
	run := Run{
		StartTime:  epoch,
		StartSpeed: 0,
		EndSpeed:   100,
		Elapsed:    4 * time.Second,
	}
	accel, err := run.AverageAcceleration()
	require.NoError(t, err)
	assert.InDelta(t, 6.944, accel, 0.001)

	run.Active = true
	_, err = run.AverageAcceleration()
	assert.True(t, errors.Is(err, ErrNoCompletedRun))
}

func TestRun_ReachedTarget(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want bool
	}{
		{"never started", Run{Kind: ZeroToHundred}, false},
		{"still running", Run{Kind: ZeroToHundred, StartTime: epoch, EndSpeed: 120, Active: true}, false},
		{"aborted below target", Run{Kind: ZeroToHundred, StartTime: epoch, EndSpeed: 40, Elapsed: 100 * time.Millisecond}, false},
		{"reached 100", Run{Kind: ZeroToHundred, StartTime: epoch, EndSpeed: 104, Elapsed: 5 * time.Second}, true},
		{"rolling race cut short", Run{Kind: RollingRace, StartTime: epoch, EndSpeed: 90, Elapsed: 4 * time.Second}, false},
		{"rolling race full window", Run{Kind: RollingRace, StartTime: epoch, EndSpeed: 90, Elapsed: 10 * time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.ReachedTarget())
		})
	}
}

func TestRun_Progress(t *testing.T) {
	assert.Equal(t, 0.0, Run{}.Progress())
	assert.InDelta(t, 0.35, Run{Elapsed: 3500 * time.Millisecond}.Progress(), 1e-9)
	assert.Equal(t, 1.0, Run{Elapsed: 14 * time.Second}.Progress())
}

func TestTracker_StopIsNoOpWhenIdle(t *testing.T) {
	src := telemetry.Speeds(1)
	tr, _ := newTestTracker(src, 100*time.Millisecond)

	tr.StopTracking()
	assert.False(t, tr.Run().Started())
	assert.Equal(t, 0, src.Calls())
}

func TestTracker_RestartClearsPreviousResult(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(0, 120, 0), 100*time.Millisecond)

	require.NoError(t, tr.StartTracking(ZeroToHundred))
	runUntilDone(t, c, tr, 5)
	_, err := tr.AverageAcceleration()
	require.NoError(t, err)

	require.NoError(t, tr.StartTracking(RollingRace))
	run := tr.Run()
	assert.True(t, run.Active)
	assert.Equal(t, time.Duration(0), run.Elapsed)
	assert.Equal(t, 0.0, run.EndSpeed)
	_, err = tr.AverageAcceleration()
	assert.ErrorIs(t, err, ErrNoCompletedRun)
	tr.StopTracking()
}

func TestTracker_StopFromSubscriber(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(5), 100*time.Millisecond)

	finished := make(chan Run, 1)
	tr.Subscribe(func(u Update) {
		switch u.Kind {
		case UpdateProgress:
			tr.StopTracking()
		case UpdateFinished:
			finished <- u.Run
		}
	})

	require.NoError(t, tr.StartTracking(RollingRace))
	c.Advance(tr.Period())

	select {
	case run := <-finished:
		assert.False(t, run.Active)
		assert.Equal(t, 100*time.Millisecond, run.Elapsed)
	case <-time.After(waitFor):
		t.Fatal("no finished update")
	}
}

func TestTracker_SubscribeSequence(t *testing.T) {
	tr, c := newTestTracker(telemetry.Speeds(0, 0, 110), 100*time.Millisecond)

	var mu sync.Mutex
	var kinds []UpdateKind
	unsubscribe := tr.Subscribe(func(u Update) {
		mu.Lock()
		kinds = append(kinds, u.Kind)
		mu.Unlock()
	})
	defer unsubscribe()

	require.NoError(t, tr.StartTracking(ZeroToHundred))
	runUntilDone(t, c, tr, 5)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(kinds) == 4
	}, waitFor, pollInt)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []UpdateKind{UpdateStarted, UpdateProgress, UpdateProgress, UpdateFinished}, kinds)
}

func TestTracker_UnknownKind(t *testing.T) {
	tr, _ := newTestTracker(telemetry.Speeds(0), 0)
	assert.ErrorIs(t, tr.StartTracking(Kind(42)), ErrUnknownKind)
	assert.Equal(t, 100*time.Millisecond, tr.Period())
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)

		text, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	_, err := ParseKind("figure-eight")
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Equal(t, QuarterMile, ZeroToHundred.Next())
	assert.Equal(t, RollingRace, ZeroToHundred.Prev())
}
