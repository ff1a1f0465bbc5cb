package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/telemetry"
)

var epoch = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

func entries(speeds []float64, rpms []int) []recorder.Entry {
	out := make([]recorder.Entry, len(speeds))
	for i := range speeds {
		out[i] = recorder.Entry{
			Timestamp: epoch.Add(time.Duration(i) * time.Second),
			Reading:   telemetry.Reading{SpeedKmh: speeds[i], RPM: rpms[i], ThrottlePct: 50},
		}
	}
	return out
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil, 7000))
}

func TestSummarize_Single(t *testing.T) {
	s := Summarize(entries([]float64{42}, []int{2000}), 7000)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, time.Duration(0), s.Duration)
	assert.Equal(t, 42.0, s.Speed.Mean)
	assert.Equal(t, 0.0, s.Speed.StdDev)
}

func TestSummarize(t *testing.T) {
	s := Summarize(entries(
		[]float64{0, 50, 100, 150},
		[]int{1000, 3000, 7000, 7500},
	), 7000)

	require.Equal(t, 4, s.Count)
	assert.Equal(t, epoch, s.Start)
	assert.Equal(t, 3*time.Second, s.Duration)

	assert.InDelta(t, 75.0, s.Speed.Mean, 1e-9)
	assert.InDelta(t, 64.5497, s.Speed.StdDev, 1e-4) // sample stddev
	assert.Equal(t, 0.0, s.Speed.Min)
	assert.Equal(t, 150.0, s.Speed.Max)

	assert.InDelta(t, 4625.0, s.RPM.Mean, 1e-9)
	assert.Equal(t, 7500.0, s.RPM.Max)
	assert.Equal(t, 50.0, s.Throttle.Mean)
	assert.InDelta(t, 0.5, s.OverRedline, 1e-9)
}

func TestSummarize_RedlineDisabled(t *testing.T) {
	s := Summarize(entries([]float64{1}, []int{9000}), 0)
	assert.Equal(t, 0.0, s.OverRedline)
}

func TestValues(t *testing.T) {
	got := Values(entries([]float64{1, 2}, []int{800, 900}), telemetry.ChannelRPM)
	assert.Equal(t, []float64{800, 900}, got)
}
