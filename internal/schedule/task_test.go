package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tune-dash.klederson.com/internal/clock"
)

var epoch = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

const (
	waitFor = time.Second
	pollInt = time.Millisecond
)

// step advances the clock by one period and waits for the resulting
// invocation to finish.
func step(t *testing.T, c *clock.Mock, task *Task) {
	t.Helper()
	want := task.Ticks() + 1
	c.Advance(task.Period())
	require.Eventually(t, func() bool { return task.Ticks() == want }, waitFor, pollInt)
}

func TestTask_InvokesOncePerPeriod(t *testing.T) {
	c := clock.NewMock(epoch)

	var mu sync.Mutex
	var seen []time.Time
	task := Every(c, time.Second, func(now time.Time) {
		mu.Lock()
		seen = append(seen, now)
		mu.Unlock()
	})
	defer task.Stop()

	for i := 0; i < 3; i++ {
		step(t, c, task)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	for i, ts := range seen {
		assert.Equal(t, epoch.Add(time.Duration(i+1)*time.Second), ts)
	}
	assert.Equal(t, int64(0), task.Skipped())
}

func TestTask_NoInvocationAfterStop(t *testing.T) {
	c := clock.NewMock(epoch)
	task := Every(c, time.Second, func(time.Time) {})

	step(t, c, task)
	assert.True(t, task.Stop())
	assert.True(t, task.Stopped())

	for i := 0; i < 5; i++ {
		c.Advance(time.Second)
	}
	assert.Never(t, func() bool { return task.Ticks() != 1 }, 50*time.Millisecond, pollInt)
}

func TestTask_StopIsIdempotent(t *testing.T) {
	c := clock.NewMock(epoch)
	task := Every(c, time.Second, func(time.Time) {})

	assert.True(t, task.Stop())
	assert.False(t, task.Stop())
}

func TestTask_SkipsTickWhileRunning(t *testing.T) {
	c := clock.NewMock(epoch)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	task := Every(c, time.Second, func(time.Time) {
		entered <- struct{}{}
		<-release
	})
	defer task.Stop()

	c.Advance(time.Second)
	select {
	case <-entered:
	case <-time.After(waitFor):
		t.Fatal("first tick never ran")
	}

	c.Advance(time.Second)
	require.Eventually(t, func() bool { return task.Skipped() == 1 }, waitFor, pollInt)

	close(release)
	require.Eventually(t, func() bool { return task.Ticks() == 1 }, waitFor, pollInt)
	assert.Equal(t, int64(1), task.Skipped())
}

func TestTask_StopFromWithinInvocation(t *testing.T) {
	c := clock.NewMock(epoch)

	var task *Task
	task = Every(c, time.Second, func(time.Time) {
		task.Stop()
	})

	c.Advance(time.Second)
	require.Eventually(t, func() bool { return task.Ticks() == 1 }, waitFor, pollInt)
	assert.True(t, task.Stopped())

	c.Advance(time.Second)
	assert.Never(t, func() bool { return task.Ticks() > 1 }, 50*time.Millisecond, pollInt)
}

func TestTask_RealClock(t *testing.T) {
	var mu sync.Mutex
	n := 0
	task := Every(clock.Real{}, 5*time.Millisecond, func(time.Time) {
		mu.Lock()
		n++
		mu.Unlock()
	})

	require.Eventually(t, func() bool { return task.Ticks() >= 3 }, waitFor, pollInt)
	task.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, n, 3)
}
