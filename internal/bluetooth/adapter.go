package bluetooth

import (
	"strings"
	"time"
)

// Transport distinguishes BLE adapters from Classic (SPP) ones.
type Transport int

const (
	TransportBLE Transport = iota
	TransportClassic
)

func (t Transport) String() string {
	if t == TransportClassic {
		return "Classic"
	}
	return "BLE"
}

// Discovered is one advertisement or inquiry result from a scanner.
type Discovered struct {
	MAC       string
	Name      string
	RSSI      int16
	Transport Transport
}

// Adapter is a device seen by the scanners, with smoothed signal strength.
type Adapter struct {
	MAC       string    `json:"mac"`
	Name      string    `json:"name"`
	RSSI      float64   `json:"rssi"`
	Transport Transport `json:"transport"`
	LastSeen  time.Time `json:"last_seen"`
	OBD       bool      `json:"obd"`
}

// DisplayName returns the device name or "[unnamed]" if empty.
func (a *Adapter) DisplayName() string {
	if a.Name == "" {
		return "[unnamed]"
	}
	return a.Name
}

// SignalBars maps RSSI to 0-4 bars.
func (a *Adapter) SignalBars() int {
	switch {
	case a.RSSI >= -55:
		return 4
	case a.RSSI >= -67:
		return 3
	case a.RSSI >= -78:
		return 2
	case a.RSSI >= -90:
		return 1
	default:
		return 0
	}
}

// obdNameHints are substrings found in the advertised names of common
// OBD-II dongles.
var obdNameHints = []string{
	"obdii", "obd2", "obd-ii", "obd ii", "obdlink", "elm327", "elm 327",
	"vgate", "icar", "veepeak", "v-link", "vlink", "konnwei", "carista",
	"bafx", "kiwi", "lelink",
}

// IsOBDAdapter reports whether name looks like an OBD-II adapter.
func IsOBDAdapter(name string) bool {
	n := strings.ToLower(name)
	if n == "" {
		return false
	}
	for _, hint := range obdNameHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}
