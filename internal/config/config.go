package config

import "time"

const (
	// Sampling cadence
	SamplePeriod = 1 * time.Second        // Recording session tick
	PollPeriod   = 100 * time.Millisecond // Performance tracker poll

	// Performance test thresholds
	ZeroToHundredKmh     = 100.0
	HundredToTwoKmh      = 200.0
	QuarterMileMeters    = 402.336 // 1/4 mile
	RollingRaceSeconds   = 10.0
	KmhToMetersPerSecond = 0.277778

	// Gauges
	MaxSpeedKmh = 280.0 // Speed dial full scale
	MaxRPM      = 8000  // Tach full scale
	RedlineRPM  = 7000
	AspectRatio = 0.5 // Terminal char aspect correction (chars are ~2:1 tall)
	TargetFPS   = 15  // Dashboard refresh rate
	DialArcDeg  = 270 // Dial face span, centred on north
	DialTicks   = 8   // Major ticks on a dial face
	NeedleEase  = 0.35
	NeedleGlow  = 12.0 // Degrees either side of the needle that glow

	// Adapter discovery
	SmoothingAlpha = 0.3              // EMA smoothing factor (30% new, 70% old)
	AdapterTimeout = 30 * time.Second // Forget adapters not seen for this long
	EvictInterval  = 5 * time.Second  // How often to run eviction

	// Dashboard history
	HistoryLen = 120 // Samples kept for sparklines

	// App
	AppName    = "TUNE-DASH"
	AppVersion = "1.0"
)
