package telemetry

import (
	"fmt"
	"strings"
)

// Reading is one instantaneous telemetry snapshot. It is a value type and is
// never mutated after the source produces it.
type Reading struct {
	RPM           int     `json:"rpm"`
	SpeedKmh      float64 `json:"speed_kmh"`
	ThrottlePct   float64 `json:"throttle_pct"`      // 0-100
	MAFGramsPerS  float64 `json:"maf_grams_per_sec"` // Mass air flow
	O2Volts       float64 `json:"o2_volts"`
	TimingDegrees float64 `json:"timing_degrees"` // Ignition advance
}

// Channel selects one measurement out of a Reading.
type Channel int

const (
	ChannelRPM Channel = iota
	ChannelSpeed
	ChannelThrottle
	ChannelMAF
	ChannelO2
	ChannelTiming
	ChannelBoost
	ChannelAFR
)

// Channels lists every channel in display order.
var Channels = []Channel{
	ChannelRPM, ChannelSpeed, ChannelThrottle, ChannelMAF,
	ChannelO2, ChannelTiming, ChannelBoost, ChannelAFR,
}

func (c Channel) String() string {
	switch c {
	case ChannelRPM:
		return "RPM"
	case ChannelSpeed:
		return "Speed"
	case ChannelThrottle:
		return "Throttle"
	case ChannelMAF:
		return "MAF"
	case ChannelO2:
		return "O2"
	case ChannelTiming:
		return "Timing"
	case ChannelBoost:
		return "Boost Pressure"
	case ChannelAFR:
		return "Air/Fuel Ratio"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Unit returns the display unit for the channel.
func (c Channel) Unit() string {
	switch c {
	case ChannelRPM:
		return "rpm"
	case ChannelSpeed:
		return "km/h"
	case ChannelThrottle, ChannelBoost:
		return "%"
	case ChannelMAF:
		return "g/s"
	case ChannelO2, ChannelAFR:
		return "V"
	case ChannelTiming:
		return "deg"
	default:
		return ""
	}
}

// Value extracts the channel from r. The stand-in source has no boost or
// wideband sensor, so Boost reads throttle position and AFR reads the O2
// voltage.
func (c Channel) Value(r Reading) float64 {
	switch c {
	case ChannelRPM:
		return float64(r.RPM)
	case ChannelSpeed:
		return r.SpeedKmh
	case ChannelThrottle, ChannelBoost:
		return r.ThrottlePct
	case ChannelMAF:
		return r.MAFGramsPerS
	case ChannelO2, ChannelAFR:
		return r.O2Volts
	case ChannelTiming:
		return r.TimingDegrees
	default:
		return 0
	}
}

// Next returns the following channel, wrapping around.
func (c Channel) Next() Channel {
	return Channels[(int(c)+1)%len(Channels)]
}

// Prev returns the preceding channel, wrapping around.
func (c Channel) Prev() Channel {
	return Channels[(int(c)-1+len(Channels))%len(Channels)]
}

// ParseChannel resolves a channel name case-insensitively. Short aliases
// ("afr", "boost", "o2") are accepted.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rpm":
		return ChannelRPM, nil
	case "speed":
		return ChannelSpeed, nil
	case "throttle":
		return ChannelThrottle, nil
	case "maf":
		return ChannelMAF, nil
	case "o2":
		return ChannelO2, nil
	case "timing":
		return ChannelTiming, nil
	case "boost", "boost pressure":
		return ChannelBoost, nil
	case "afr", "air/fuel ratio":
		return ChannelAFR, nil
	default:
		return 0, fmt.Errorf("unknown channel %q", s)
	}
}
