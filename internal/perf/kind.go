package perf

import (
	"fmt"
	"strings"

	"tune-dash.klederson.com/internal/config"
)

// Kind selects a timed test and its stop condition.
type Kind int

const (
	ZeroToHundred Kind = iota
	QuarterMile
	HundredToTwoHundred
	RollingRace
)

// Kinds lists every test kind in menu order.
var Kinds = []Kind{ZeroToHundred, QuarterMile, HundredToTwoHundred, RollingRace}

func (k Kind) String() string {
	switch k {
	case ZeroToHundred:
		return "0-100 km/h"
	case QuarterMile:
		return "1/4 Mile"
	case HundredToTwoHundred:
		return "100-200 km/h"
	case RollingRace:
		return "Rolling Race"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= ZeroToHundred && k <= RollingRace
}

// Next returns the following kind, wrapping around.
func (k Kind) Next() Kind { return Kinds[(int(k)+1)%len(Kinds)] }

// Prev returns the preceding kind, wrapping around.
func (k Kind) Prev() Kind { return Kinds[(int(k)-1+len(Kinds))%len(Kinds)] }

// MarshalText encodes the kind by its short name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.slug()), nil
}

// UnmarshalText accepts anything ParseKind does.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (k Kind) slug() string {
	switch k {
	case ZeroToHundred:
		return "0-100"
	case QuarterMile:
		return "quarter-mile"
	case HundredToTwoHundred:
		return "100-200"
	case RollingRace:
		return "rolling"
	default:
		return ""
	}
}

// ParseKind resolves a kind from its short name, display name or a common
// alias, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0-100", "0-100 km/h", "zero-to-hundred", "zerotohundred":
		return ZeroToHundred, nil
	case "quarter-mile", "1/4 mile", "quarter", "quartermile", "1/4":
		return QuarterMile, nil
	case "100-200", "100-200 km/h", "hundred-to-two-hundred", "hundredtotwohundred":
		return HundredToTwoHundred, nil
	case "rolling", "rolling race", "rolling-race", "rollingrace":
		return RollingRace, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// ShouldStop evaluates the stop condition for k given the current speed and
// the seconds elapsed since the test started. The quarter-mile condition
// treats the current speed as if it had been held for the whole run.
func (k Kind) ShouldStop(speedKmh, elapsedSec float64) bool {
	switch k {
	case ZeroToHundred:
		return speedKmh >= config.ZeroToHundredKmh
	case HundredToTwoHundred:
		return speedKmh >= config.HundredToTwoKmh
	case QuarterMile:
		return speedKmh*elapsedSec >= config.QuarterMileMeters
	case RollingRace:
		return elapsedSec >= config.RollingRaceSeconds
	default:
		return false
	}
}
