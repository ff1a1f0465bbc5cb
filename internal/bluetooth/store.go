package bluetooth

import (
	"sort"
	"sync"
	"time"

	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
)

// AdapterStore is a thread-safe store for discovered adapters.
type AdapterStore struct {
	clk      clock.Clock
	mu       sync.RWMutex
	adapters map[string]*Adapter
}

// NewAdapterStore creates a new empty AdapterStore.
func NewAdapterStore(c clock.Clock) *AdapterStore {
	return &AdapterStore{
		clk:      c,
		adapters: make(map[string]*Adapter),
	}
}

// Add records a scanner result.
func (s *AdapterStore) Add(d Discovered) {
	s.Upsert(d.MAC, d.Name, float64(d.RSSI), d.Transport)
}

// Upsert adds or updates an adapter. If it already exists, RSSI is smoothed
// using EMA and an empty name never overwrites a known one.
func (s *AdapterStore) Upsert(mac, name string, rssi float64, transport Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()

	if existing, ok := s.adapters[mac]; ok {
		existing.RSSI = existing.RSSI*(1-config.SmoothingAlpha) + rssi*config.SmoothingAlpha
		existing.LastSeen = now
		if name != "" {
			existing.Name = name
			existing.OBD = IsOBDAdapter(name)
		}
		return
	}

	s.adapters[mac] = &Adapter{
		MAC:       mac,
		Name:      name,
		RSSI:      rssi,
		Transport: transport,
		LastSeen:  now,
		OBD:       IsOBDAdapter(name),
	}
}

// Evict removes adapters not seen within the timeout duration.
// Returns the number of evicted adapters.
func (s *AdapterStore) Evict(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clk.Now().Add(-timeout)
	count := 0
	for mac, a := range s.adapters {
		if a.LastSeen.Before(cutoff) {
			delete(s.adapters, mac)
			count++
		}
	}
	return count
}

// Snapshot returns a sorted copy of all adapters: OBD adapters first, then
// strongest RSSI first.
func (s *AdapterStore) Snapshot() []Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Adapter, 0, len(s.adapters))
	for _, a := range s.adapters {
		result = append(result, *a)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OBD != result[j].OBD {
			return result[i].OBD
		}
		if result[i].RSSI != result[j].RSSI {
			return result[i].RSSI > result[j].RSSI
		}
		return result[i].MAC < result[j].MAC
	})
	return result
}

// Get returns the adapter with the given MAC.
func (s *AdapterStore) Get(mac string) (Adapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adapters[mac]
	if !ok {
		return Adapter{}, false
	}
	return *a, true
}

// Count returns the total number of tracked adapters and how many of them
// look like OBD adapters.
func (s *AdapterStore) Count() (total, obd int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.adapters {
		if a.OBD {
			obd++
		}
	}
	return len(s.adapters), obd
}
