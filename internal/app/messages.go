package app

import (
	"time"

	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/telemetry"
)

// TickMsg triggers a frame update for animation.
type TickMsg time.Time

// SampleMsg carries a live reading for the gauges.
type SampleMsg telemetry.Reading

// EvictMsg triggers adapter eviction.
type EvictMsg time.Time

// AdapterMsg reports one scanner result.
type AdapterMsg bluetooth.Discovered

// ScanErrorMsg reports scanner errors.
type ScanErrorMsg struct {
	Err error
}

// ExportedMsg reports the outcome of a log export.
type ExportedMsg struct {
	Path string
	Err  error
}

// SavedMsg reports the outcome of a vehicle snapshot write.
type SavedMsg struct {
	What string
	Err  error
}
