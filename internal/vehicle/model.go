// Package vehicle holds the configured vehicle, its tune profile, reference
// performance figures and diagnostic codes, persisted as snapshots.
package vehicle

import (
	"errors"
	"fmt"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("vehicle: invalid")

type FuelType string

const (
	Gasoline FuelType = "Gasoline"
	Diesel   FuelType = "Diesel"
	Electric FuelType = "Electric"
	Hybrid   FuelType = "Hybrid"
)

func (f FuelType) Valid() bool {
	switch f {
	case Gasoline, Diesel, Electric, Hybrid:
		return true
	}
	return false
}

type Transmission string

const (
	Manual     Transmission = "Manual"
	Automatic  Transmission = "Automatic"
	DualClutch Transmission = "Dual Clutch"
	CVT        Transmission = "CVT"
)

func (t Transmission) Valid() bool {
	switch t {
	case Manual, Automatic, DualClutch, CVT:
		return true
	}
	return false
}

type ModificationType string

const (
	ModEngine     ModificationType = "Engine"
	ModIntake     ModificationType = "Intake"
	ModExhaust    ModificationType = "Exhaust"
	ModTurbo      ModificationType = "Turbo"
	ModECU        ModificationType = "ECU"
	ModSuspension ModificationType = "Suspension"
	ModOther      ModificationType = "Other"
)

func (m ModificationType) Valid() bool {
	switch m {
	case ModEngine, ModIntake, ModExhaust, ModTurbo, ModECU, ModSuspension, ModOther:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Rank orders severities from 0 (low) to 3 (critical); unknown is -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

type Modification struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Type    ModificationType `json:"type"`
	Details string           `json:"details"`
}

type Vehicle struct {
	ID            string         `json:"id"`
	Make          string         `json:"make"`
	Model         string         `json:"model"`
	Year          int            `json:"year"`
	EngineSize    float64        `json:"engine_size"` // litres
	FuelType      FuelType       `json:"fuel_type"`
	Transmission  Transmission   `json:"transmission"`
	EngineCode    string         `json:"engine_code"`
	Modifications []Modification `json:"modifications"`
}

// Validate checks the required fields and enum values.
func (v Vehicle) Validate() error {
	if v.Make == "" || v.Model == "" {
		return fmt.Errorf("%w: make and model are required", ErrInvalid)
	}
	if v.Year < 1886 || v.Year > 2100 {
		return fmt.Errorf("%w: year %d", ErrInvalid, v.Year)
	}
	if v.EngineSize < 0 {
		return fmt.Errorf("%w: engine size %.1f", ErrInvalid, v.EngineSize)
	}
	if !v.FuelType.Valid() {
		return fmt.Errorf("%w: fuel type %q", ErrInvalid, v.FuelType)
	}
	if !v.Transmission.Valid() {
		return fmt.Errorf("%w: transmission %q", ErrInvalid, v.Transmission)
	}
	for _, m := range v.Modifications {
		if m.Name == "" || !m.Type.Valid() {
			return fmt.Errorf("%w: modification %q (%s)", ErrInvalid, m.Name, m.Type)
		}
	}
	return nil
}

// Title is the short display name, e.g. "2023 BMW M3".
func (v Vehicle) Title() string {
	return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
}

// PerformanceData holds reference figures for the vehicle.
type PerformanceData struct {
	Horsepower      float64 `json:"horsepower"`
	Torque          float64 `json:"torque"`           // Nm
	Acceleration    float64 `json:"acceleration"`     // 0-100 km/h, seconds
	FuelConsumption float64 `json:"fuel_consumption"` // L/100km
	BoostPressure   float64 `json:"boost_pressure"`   // bar
	AFR             float64 `json:"afr"`
	EngineTemp      float64 `json:"engine_temp"`
	OilTemp         float64 `json:"oil_temp"`
	OilPressure     float64 `json:"oil_pressure"`
}

type FuelMap struct {
	RPM   int     `json:"rpm"`
	Load  float64 `json:"load"` // 0-1
	Value float64 `json:"value"`
}

type TuneProfile struct {
	IgnitionTiming float64   `json:"ignition_timing"` // degrees
	FuelMapping    []FuelMap `json:"fuel_mapping"`
	BoostControl   float64   `json:"boost_control"` // bar
	RevLimit       int       `json:"rev_limit"`
	LaunchControl  int       `json:"launch_control"`
}

// Tune parameter bounds.
const (
	MinIgnitionTiming = 0.0
	MaxIgnitionTiming = 20.0
	MaxBoostBar       = 2.5
	MinRevLimit       = 5000
	MaxRevLimit       = 8000
	MinLaunchControl  = 2000
	MaxLaunchControl  = 4000
)

// Validate checks every parameter against its adjustable range and that
// launch control sits below the rev limit.
func (t TuneProfile) Validate() error {
	switch {
	case t.IgnitionTiming < MinIgnitionTiming || t.IgnitionTiming > MaxIgnitionTiming:
		return fmt.Errorf("%w: ignition timing %.1f outside %.0f-%.0f", ErrInvalid, t.IgnitionTiming, MinIgnitionTiming, MaxIgnitionTiming)
	case t.BoostControl < 0 || t.BoostControl > MaxBoostBar:
		return fmt.Errorf("%w: boost %.2f bar outside 0-%.1f", ErrInvalid, t.BoostControl, MaxBoostBar)
	case t.RevLimit < MinRevLimit || t.RevLimit > MaxRevLimit:
		return fmt.Errorf("%w: rev limit %d outside %d-%d", ErrInvalid, t.RevLimit, MinRevLimit, MaxRevLimit)
	case t.LaunchControl < MinLaunchControl || t.LaunchControl > MaxLaunchControl:
		return fmt.Errorf("%w: launch control %d outside %d-%d", ErrInvalid, t.LaunchControl, MinLaunchControl, MaxLaunchControl)
	case t.LaunchControl >= t.RevLimit:
		return fmt.Errorf("%w: launch control %d must be below rev limit %d", ErrInvalid, t.LaunchControl, t.RevLimit)
	}
	for _, m := range t.FuelMapping {
		if m.RPM <= 0 || m.RPM > t.RevLimit {
			return fmt.Errorf("%w: fuel map rpm %d", ErrInvalid, m.RPM)
		}
		if m.Load < 0 || m.Load > 1 {
			return fmt.Errorf("%w: fuel map load %.2f outside 0-1", ErrInvalid, m.Load)
		}
	}
	return nil
}

type DiagnosticCode struct {
	ID          string   `json:"id"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}
