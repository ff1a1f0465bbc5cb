package bluetooth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tune-dash.klederson.com/internal/clock"
)

// ErrNotOBD is returned when connecting to a device that does not look like
// an OBD adapter.
var ErrNotOBD = errors.New("bluetooth: not an OBD adapter")

// LinkStatus describes the adapter connection.
type LinkStatus struct {
	Connected bool      `json:"connected"`
	MAC       string    `json:"mac,omitempty"`
	Name      string    `json:"name,omitempty"`
	Since     time.Time `json:"since,omitempty"`
}

// Link tracks which adapter the dashboard is bound to. Connecting only
// records the binding; no OBD traffic is exchanged.
type Link struct {
	clk clock.Clock

	mu     sync.RWMutex
	status LinkStatus
}

// NewLink creates a disconnected link.
func NewLink(c clock.Clock) *Link {
	return &Link{clk: c}
}

// Connect binds the link to a.
func (l *Link) Connect(a Adapter) error {
	if !a.OBD && !IsOBDAdapter(a.Name) {
		return fmt.Errorf("%w: %s", ErrNotOBD, a.DisplayName())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = LinkStatus{
		Connected: true,
		MAC:       a.MAC,
		Name:      a.Name,
		Since:     l.clk.Now(),
	}
	return nil
}

// ConnectSimulated marks the link connected without a physical adapter.
func (l *Link) ConnectSimulated() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = LinkStatus{Connected: true, Name: "Simulator", Since: l.clk.Now()}
}

// Disconnect drops the binding.
func (l *Link) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = LinkStatus{}
}

// Connected reports whether an adapter is bound.
func (l *Link) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status.Connected
}

// Status returns the current connection state.
func (l *Link) Status() LinkStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}
