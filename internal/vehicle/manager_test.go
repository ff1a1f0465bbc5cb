package vehicle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tune-dash.klederson.com/internal/snapshot"
)

type failingStore struct {
	snapshot.Store
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Put(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }

func TestManager_DefaultsWithEmptyStore(t *testing.T) {
	m := NewManager(snapshot.NewMemory(), nil)
	require.NoError(t, m.Load(context.Background()))

	_, ok := m.Vehicle()
	assert.False(t, ok)
	assert.Equal(t, PerformanceData{}, m.Performance())
	assert.Equal(t, TuneProfile{}, m.Tune())
	assert.Empty(t, m.DiagnosticCodes())
}

func TestManager_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()

	m := NewManager(store, nil)
	require.NoError(t, m.LoadDemo(ctx))

	v, ok := m.Vehicle()
	require.True(t, ok)
	assert.NotEmpty(t, v.ID)
	for _, mod := range v.Modifications {
		assert.NotEmpty(t, mod.ID)
	}
	assert.Equal(t, "2023 BMW M3", v.Title())
	require.Len(t, m.DiagnosticCodes(), 1)
	assert.Equal(t, "P0300", m.DiagnosticCodes()[0].Code)

	// A fresh manager over the same store sees the saved snapshots but not
	// the in-memory diagnostic codes.
	fresh := NewManager(store, nil)
	require.NoError(t, fresh.Load(ctx))

	got, ok := fresh.Vehicle()
	require.True(t, ok)
	assert.Equal(t, v, got)
	assert.Equal(t, DemoPerformance(), fresh.Performance())
	assert.Equal(t, DemoTune(), fresh.Tune())
	assert.Empty(t, fresh.DiagnosticCodes())
}

func TestManager_LoadSkipsUndecodableSnapshot(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	require.NoError(t, store.Put(ctx, VehicleKey, []byte("{not json")))
	require.NoError(t, store.Put(ctx, PerformanceKey, []byte(`{"horsepower":300}`)))

	m := NewManager(store, nil)
	require.NoError(t, m.Load(ctx))

	_, ok := m.Vehicle()
	assert.False(t, ok)
	assert.Equal(t, 300.0, m.Performance().Horsepower)
}

func TestManager_LoadReturnsStoreErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	m := NewManager(failingStore{err: boom}, nil)
	assert.ErrorIs(t, m.Load(context.Background()), boom)
}

func TestManager_ResetToDefaults(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	m := NewManager(store, nil)
	require.NoError(t, m.LoadDemo(ctx))

	require.NoError(t, m.ResetToDefaults(ctx))

	_, ok := m.Vehicle()
	assert.False(t, ok)
	assert.Equal(t, PerformanceData{}, m.Performance())
	assert.Equal(t, 0, m.Tune().RevLimit)
	assert.Empty(t, m.DiagnosticCodes())

	for _, key := range []string{VehicleKey, PerformanceKey, TuneProfileKey} {
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, snapshot.ErrNotFound, key)
	}
}

func TestManager_ResetClearsMemoryEvenIfStoreFails(t *testing.T) {
	ctx := context.Background()
	m := NewManager(snapshot.NewMemory(), nil)
	require.NoError(t, m.LoadDemo(ctx))

	boom := errors.New("unreachable")
	m.store = failingStore{err: boom}
	assert.ErrorIs(t, m.ResetToDefaults(ctx), boom)
	_, ok := m.Vehicle()
	assert.False(t, ok)
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	m := NewManager(snapshot.NewMemory(), nil)

	bad := DemoVehicle()
	bad.FuelType = "Steam"
	assert.ErrorIs(t, m.SaveVehicle(ctx, bad), ErrInvalid)
	_, ok := m.Vehicle()
	assert.False(t, ok, "rejected vehicle is not kept")

	tune := DemoTune()
	tune.LaunchControl = 8000
	assert.ErrorIs(t, m.SaveTune(ctx, tune), ErrInvalid)

	assert.ErrorIs(t, m.SetDiagnosticCodes([]DiagnosticCode{{Code: "P0420", Severity: "meh"}}), ErrInvalid)
	assert.ErrorIs(t, m.RecordAcceleration(ctx, 0), ErrInvalid)
}

func TestManager_RecordAcceleration(t *testing.T) {
	ctx := context.Background()
	store := snapshot.NewMemory()
	m := NewManager(store, nil)
	require.NoError(t, m.SavePerformance(ctx, DemoPerformance()))

	require.NoError(t, m.RecordAcceleration(ctx, 4.2))
	assert.Equal(t, 4.2, m.Performance().Acceleration)
	assert.Equal(t, 510.0, m.Performance().Horsepower)

	fresh := NewManager(store, nil)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, 4.2, fresh.Performance().Acceleration)
}

func TestManager_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewManager(snapshot.NewMemory(), nil)
	require.NoError(t, m.LoadDemo(ctx))

	v, _ := m.Vehicle()
	v.Modifications[0].Name = "changed"
	tune := m.Tune()
	tune.FuelMapping[0].RPM = 1

	again, _ := m.Vehicle()
	assert.Equal(t, "Stage 1 ECU Tune", again.Modifications[0].Name)
	assert.Equal(t, 2000, m.Tune().FuelMapping[0].RPM)
}

func TestManager_Bundle(t *testing.T) {
	m := NewManager(snapshot.NewMemory(), nil)
	b := m.Bundle()
	assert.Nil(t, b.Vehicle)
	assert.NotNil(t, b.DiagnosticCodes)

	require.NoError(t, m.LoadDemo(context.Background()))
	b = m.Bundle()
	require.NotNil(t, b.Vehicle)
	assert.Equal(t, "M3", b.Vehicle.Model)
}

func TestTuneProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TuneProfile)
		wantErr bool
	}{
		{"demo is valid", func(*TuneProfile) {}, false},
		{"timing too high", func(p *TuneProfile) { p.IgnitionTiming = 25 }, true},
		{"negative boost", func(p *TuneProfile) { p.BoostControl = -0.1 }, true},
		{"boost too high", func(p *TuneProfile) { p.BoostControl = 3 }, true},
		{"rev limit too low", func(p *TuneProfile) { p.RevLimit = 4000 }, true},
		{"launch just under lowest rev limit", func(p *TuneProfile) { p.RevLimit = 5000; p.LaunchControl = 4000 }, false},
		{"launch too low", func(p *TuneProfile) { p.LaunchControl = 1500 }, true},
		{"fuel map load over one", func(p *TuneProfile) { p.FuelMapping[0].Load = 1.2 }, true},
		{"fuel map rpm past limiter", func(p *TuneProfile) { p.FuelMapping[1].RPM = 9000 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DemoTune()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVehicle_Validate(t *testing.T) {
	assert.NoError(t, DemoVehicle().Validate())

	v := DemoVehicle()
	v.Make = ""
	assert.ErrorIs(t, v.Validate(), ErrInvalid)

	v = DemoVehicle()
	v.Modifications = append(v.Modifications, Modification{Name: "Wing", Type: "Aero"})
	assert.ErrorIs(t, v.Validate(), ErrInvalid)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityLow.Rank(), SeverityCritical.Rank())
	assert.Equal(t, -1, Severity("bogus").Rank())
}
