// Package stats summarises recorded telemetry.
package stats

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/telemetry"
)

// Channel holds descriptive statistics for one channel.
type Channel struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary describes a recording.
type Summary struct {
	Count    int           `json:"count"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
	Speed    Channel       `json:"speed_kmh"`
	RPM      Channel       `json:"rpm"`
	Throttle Channel       `json:"throttle_pct"`
	// Fraction of samples at or above the redline.
	OverRedline float64 `json:"over_redline"`
}

// Summarize computes a Summary over entries. An empty slice yields the zero
// Summary. redline is the RPM treated as over the limit; zero disables it.
func Summarize(entries []recorder.Entry, redline int) Summary {
	if len(entries) == 0 {
		return Summary{}
	}

	s := Summary{
		Count: len(entries),
		Start: entries[0].Timestamp,
		End:   entries[len(entries)-1].Timestamp,
	}
	s.Duration = s.End.Sub(s.Start)
	s.Speed = describe(entries, telemetry.ChannelSpeed)
	s.RPM = describe(entries, telemetry.ChannelRPM)
	s.Throttle = describe(entries, telemetry.ChannelThrottle)

	if redline > 0 {
		over := 0
		for _, e := range entries {
			if e.Reading.RPM >= redline {
				over++
			}
		}
		s.OverRedline = float64(over) / float64(len(entries))
	}
	return s
}

// Values extracts one channel from entries in order.
func Values(entries []recorder.Entry, ch telemetry.Channel) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = ch.Value(e.Reading)
	}
	return out
}

func describe(entries []recorder.Entry, ch telemetry.Channel) Channel {
	x := Values(entries, ch)
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	return Channel{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(x),
		Max:    floats.Max(x),
	}
}
