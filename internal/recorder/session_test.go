package recorder

import (
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

// tick advances the clock one period and waits for the sample to land and
// the tick to complete.
func tick(t *testing.T, c *clock.Mock, s *Session) {
	t.Helper()
	wantLen, wantTicks := s.Len()+1, s.Ticks()+1
	c.Advance(s.Period())
	require.Eventually(t, func() bool {
		return s.Len() == wantLen && s.Ticks() == wantTicks
	}, waitFor, pollInt)
}

func newTestSession(src telemetry.Source) (*Session, *clock.Mock) {
	c := clock.NewMock(epoch)
	return NewSession(src, c, time.Second, nil), c
}

func TestSession_CreatedInactiveAndEmpty(t *testing.T) {
	s, _ := newTestSession(telemetry.Speeds(1))
	assert.False(t, s.Active())
	assert.Empty(t, s.Entries())
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, time.Second, s.Period())
}

func TestSession_DefaultPeriod(t *testing.T) {
	s := NewSession(telemetry.Speeds(1), clock.NewMock(epoch), 0, nil)
	assert.Equal(t, time.Second, s.Period())
}

func TestSession_OneEntryPerPeriod(t *testing.T) {
	src := telemetry.Speeds(10, 20, 30, 40)
	s, c := newTestSession(src)

	s.Start()
	require.True(t, s.Active())
	for i := 0; i < 4; i++ {
		tick(t, c, s)
	}
	s.Stop()

	entries := s.Entries()
	require.Len(t, entries, 4)
	for i, e := range entries {
		assert.Equal(t, epoch.Add(time.Duration(i+1)*time.Second), e.Timestamp)
		assert.Equal(t, float64(10*(i+1)), e.Reading.SpeedKmh)
	}
	assert.Equal(t, 4, src.Calls(), "one reading per tick")
}

func TestSession_NothingAppendedWhileInactive(t *testing.T) {
	src := telemetry.Speeds(1)
	s, c := newTestSession(src)

	c.Advance(5 * time.Second)
	assert.Never(t, func() bool { return s.Len() > 0 }, 50*time.Millisecond, pollInt)

	s.Start()
	tick(t, c, s)
	s.Stop()
	assert.False(t, s.Active())

	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
	}
	assert.Never(t, func() bool { return s.Len() != 1 }, 50*time.Millisecond, pollInt)
	assert.Equal(t, 1, src.Calls())
}

func TestSession_StartStopIdempotent(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(1))

	s.Stop()
	s.Stop()
	assert.False(t, s.Active())
	assert.Empty(t, s.Entries())

	s.Start()
	s.Start()
	assert.Equal(t, 1, c.Tickers(), "second Start must not schedule another task")

	tick(t, c, s)
	assert.Never(t, func() bool { return s.Len() > 1 }, 50*time.Millisecond, pollInt)

	s.Stop()
	s.Stop()
	assert.False(t, s.Active())
	assert.Equal(t, 1, s.Len())
}

func TestSession_EntriesPersistAcrossRestart(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(5))

	s.Start()
	tick(t, c, s)
	tick(t, c, s)
	s.Stop()

	s.Start()
	tick(t, c, s)
	s.Stop()

	entries := s.Entries()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestSession_Clear(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(5))

	s.Start()
	tick(t, c, s)
	tick(t, c, s)

	s.Clear()
	assert.Empty(t, s.Entries())
	assert.True(t, s.Active(), "clear does not stop recording")

	tick(t, c, s)
	s.Stop()
	s.Clear()
	assert.Empty(t, s.Entries())
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestSession_EntriesReturnsCopy(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(5))
	s.Start()
	tick(t, c, s)
	s.Stop()

	got := s.Entries()
	got[0].Reading.SpeedKmh = 999
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 5.0, last.Reading.SpeedKmh)
}

func TestSession_SkipsOverdueTick(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	src := telemetry.SourceFunc(func() telemetry.Reading {
		entered <- struct{}{}
		<-release
		return telemetry.Reading{SpeedKmh: 1}
	})
	s, c := newTestSession(src)
	s.Start()
	defer s.Stop()

	c.Advance(time.Second)
	<-entered

	c.Advance(time.Second)
	require.Eventually(t, func() bool { return s.Skipped() == 1 }, waitFor, pollInt)

	close(release)
	require.Eventually(t, func() bool { return s.Len() == 1 }, waitFor, pollInt)
	assert.Equal(t, int64(1), s.Skipped())
}

func TestSession_InFlightSampleDroppedAfterStop(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	src := telemetry.SourceFunc(func() telemetry.Reading {
		entered <- struct{}{}
		<-release
		return telemetry.Reading{}
	})
	s, c := newTestSession(src)
	s.Start()

	c.Advance(time.Second)
	<-entered
	s.Stop()
	close(release)

	assert.Never(t, func() bool { return s.Len() > 0 }, 50*time.Millisecond, pollInt)
}

func TestSession_Subscribe(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(7))

	var mu sync.Mutex
	var kinds []EventKind
	var appended []Entry
	unsubscribe := s.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventAppended {
			appended = append(appended, ev.Entry)
		}
	})

	s.Start()
	tick(t, c, s)
	s.Stop()
	s.Clear()
	unsubscribe()
	s.Start()
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventStarted, EventAppended, EventStopped, EventCleared}, kinds)
	require.Len(t, appended, 1)
	assert.Equal(t, 7.0, appended[0].Reading.SpeedKmh)
}

func TestSession_CallbackMayReadSession(t *testing.T) {
	s, c := newTestSession(telemetry.Speeds(1))
	seen := make(chan int, 4)
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventAppended {
			seen <- s.Len()
		}
	})

	s.Start()
	defer s.Stop()
	c.Advance(time.Second)

	select {
	case n := <-seen:
		assert.Equal(t, 1, n)
	case <-time.After(waitFor):
		t.Fatal("no append event")
	}
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "started", EventStarted.String())
	assert.Equal(t, "appended", EventAppended.String())
	assert.Equal(t, "unknown", EventKind(42).String())
}
