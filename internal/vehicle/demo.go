package vehicle

import (
	"context"
	"errors"
)

// DemoVehicle is a tuned 2023 BMW M3.
func DemoVehicle() Vehicle {
	return Vehicle{
		Make:         "BMW",
		Model:        "M3",
		Year:         2023,
		EngineSize:   3.0,
		FuelType:     Gasoline,
		Transmission: Automatic,
		EngineCode:   "S58B30T0",
		Modifications: []Modification{
			{Name: "Stage 1 ECU Tune", Type: ModECU, Details: "+50hp, +70Nm"},
			{Name: "Downpipe", Type: ModExhaust, Details: "Decat, 200 cell"},
		},
	}
}

// DemoPerformance matches DemoVehicle.
func DemoPerformance() PerformanceData {
	return PerformanceData{
		Horsepower:      510,
		Torque:          650,
		Acceleration:    3.8,
		FuelConsumption: 12.5,
		BoostPressure:   1.8,
		AFR:             14.7,
		EngineTemp:      90,
		OilTemp:         95,
		OilPressure:     5.2,
	}
}

// DemoTune matches DemoVehicle.
func DemoTune() TuneProfile {
	return TuneProfile{
		IgnitionTiming: 12.5,
		FuelMapping: []FuelMap{
			{RPM: 2000, Load: 0.5, Value: 12.5},
			{RPM: 4000, Load: 0.8, Value: 13.2},
		},
		BoostControl:  1.8,
		RevLimit:      7200,
		LaunchControl: 3000,
	}
}

// DemoDiagnosticCodes returns a single misfire code.
func DemoDiagnosticCodes() []DiagnosticCode {
	return []DiagnosticCode{
		{Code: "P0300", Description: "Random/Multiple Cylinder Misfire", Severity: SeverityMedium},
	}
}

// LoadDemo saves the demo vehicle, performance figures and tune, and sets the
// demo diagnostic codes.
func (m *Manager) LoadDemo(ctx context.Context) error {
	err := errors.Join(
		m.SaveVehicle(ctx, DemoVehicle()),
		m.SavePerformance(ctx, DemoPerformance()),
		m.SaveTune(ctx, DemoTune()),
		m.SetDiagnosticCodes(DemoDiagnosticCodes()),
	)
	if err == nil {
		m.log.Info("demo vehicle loaded")
	}
	return err
}
