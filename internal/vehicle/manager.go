package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/snapshot"
)

// Snapshot keys.
const (
	VehicleKey     = "savedVehicle"
	PerformanceKey = "savedPerformance"
	TuneProfileKey = "savedTuneProfile"
)

// Bundle is a copy of everything the manager holds.
type Bundle struct {
	Vehicle         *Vehicle         `json:"vehicle"`
	Performance     PerformanceData  `json:"performance"`
	Tune            TuneProfile      `json:"tune"`
	DiagnosticCodes []DiagnosticCode `json:"diagnostic_codes"`
}

// Manager owns the vehicle state and writes it through to a snapshot store.
// Diagnostic codes are kept in memory only.
type Manager struct {
	store snapshot.Store
	log   *zap.Logger

	mu      sync.RWMutex
	vehicle *Vehicle
	perf    PerformanceData
	tune    TuneProfile
	codes   []DiagnosticCode
}

// NewManager creates a Manager with default (empty) state. Call Load to pick
// up saved snapshots.
func NewManager(store snapshot.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, log: log}
}

// Load replaces the in-memory state with whatever snapshots exist. Missing
// keys keep their defaults; a snapshot that fails to decode is logged and
// skipped. Only store failures are returned.
func (m *Manager) Load(ctx context.Context) error {
	var (
		v    Vehicle
		perf PerformanceData
		tune TuneProfile
	)
	hasVehicle, err := m.load(ctx, VehicleKey, &v)
	if err != nil {
		return err
	}
	hasPerf, err := m.load(ctx, PerformanceKey, &perf)
	if err != nil {
		return err
	}
	hasTune, err := m.load(ctx, TuneProfileKey, &tune)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if hasVehicle {
		m.vehicle = &v
	}
	if hasPerf {
		m.perf = perf
	}
	if hasTune {
		m.tune = tune
	}
	return nil
}

func (m *Manager) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, snapshot.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.log.Warn("ignoring undecodable snapshot", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (m *Manager) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SaveVehicle validates and stores v. Missing IDs on the vehicle and its
// modifications are generated.
func (m *Manager) SaveVehicle(ctx context.Context, v Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	mods := make([]Modification, len(v.Modifications))
	for i, mod := range v.Modifications {
		if mod.ID == "" {
			mod.ID = uuid.NewString()
		}
		mods[i] = mod
	}
	v.Modifications = mods

	m.mu.Lock()
	m.vehicle = &v
	m.mu.Unlock()
	return m.save(ctx, VehicleKey, v)
}

// SavePerformance stores p.
func (m *Manager) SavePerformance(ctx context.Context, p PerformanceData) error {
	m.mu.Lock()
	m.perf = p
	m.mu.Unlock()
	return m.save(ctx, PerformanceKey, p)
}

// RecordAcceleration stores a measured 0-100 km/h time as the reference
// acceleration figure.
func (m *Manager) RecordAcceleration(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: acceleration time %.2f", ErrInvalid, seconds)
	}
	m.mu.Lock()
	m.perf.Acceleration = seconds
	p := m.perf
	m.mu.Unlock()
	return m.save(ctx, PerformanceKey, p)
}

// SaveTune validates and stores t.
func (m *Manager) SaveTune(ctx context.Context, t TuneProfile) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.FuelMapping = append([]FuelMap(nil), t.FuelMapping...)

	m.mu.Lock()
	m.tune = t
	m.mu.Unlock()
	return m.save(ctx, TuneProfileKey, t)
}

// SetDiagnosticCodes replaces the current codes.
func (m *Manager) SetDiagnosticCodes(codes []DiagnosticCode) error {
	out := make([]DiagnosticCode, len(codes))
	for i, c := range codes {
		if c.Code == "" || !c.Severity.Valid() {
			return fmt.Errorf("%w: diagnostic code %q (%s)", ErrInvalid, c.Code, c.Severity)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		out[i] = c
	}
	m.mu.Lock()
	m.codes = out
	m.mu.Unlock()
	return nil
}

// ClearDiagnosticCodes removes all codes.
func (m *Manager) ClearDiagnosticCodes() {
	m.mu.Lock()
	m.codes = nil
	m.mu.Unlock()
}

// ResetToDefaults deletes every snapshot and resets the in-memory state.
// The in-memory reset happens even if a delete fails.
func (m *Manager) ResetToDefaults(ctx context.Context) error {
	m.mu.Lock()
	m.vehicle = nil
	m.perf = PerformanceData{}
	m.tune = TuneProfile{}
	m.codes = nil
	m.mu.Unlock()

	var errs []error
	for _, key := range []string{VehicleKey, PerformanceKey, TuneProfileKey} {
		if err := m.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	m.log.Info("vehicle data reset to defaults")
	return errors.Join(errs...)
}

// Vehicle returns the configured vehicle, if any.
func (m *Manager) Vehicle() (Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.vehicle == nil {
		return Vehicle{}, false
	}
	v := *m.vehicle
	v.Modifications = append([]Modification(nil), v.Modifications...)
	return v, true
}

// Performance returns the reference performance figures.
func (m *Manager) Performance() PerformanceData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perf
}

// Tune returns the tune profile.
func (m *Manager) Tune() TuneProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.tune
	t.FuelMapping = append([]FuelMap(nil), t.FuelMapping...)
	return t
}

// DiagnosticCodes returns the current codes.
func (m *Manager) DiagnosticCodes() []DiagnosticCode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]DiagnosticCode(nil), m.codes...)
}

// Bundle returns a copy of all state.
func (m *Manager) Bundle() Bundle {
	b := Bundle{
		Performance:     m.Performance(),
		Tune:            m.Tune(),
		DiagnosticCodes: m.DiagnosticCodes(),
	}
	if v, ok := m.Vehicle(); ok {
		b.Vehicle = &v
	}
	if b.DiagnosticCodes == nil {
		b.DiagnosticCodes = []DiagnosticCode{}
	}
	return b
}
