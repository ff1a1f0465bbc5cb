package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/export"
	"tune-dash.klederson.com/internal/gauge"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/telemetry"
	"tune-dash.klederson.com/internal/ui"
	"tune-dash.klederson.com/internal/vehicle"
)

// Tab identifies a dashboard screen.
type Tab int

const (
	TabDashboard Tab = iota
	TabVehicle
	TabPerformance
	TabDiagnostics
	TabLogs
)

var errEmptyLog = errors.New("log is empty")

var tabNames = []string{"Dashboard", "Vehicle", "Performance", "Diagnostics", "Logs"}

func (t Tab) String() string { return tabNames[t] }

// Deps are the components the dashboard drives. Link, Adapters and
// Scanners may be nil or empty.
type Deps struct {
	Clock     clock.Clock
	Source    telemetry.Source
	Session   *recorder.Session
	Tracker   *perf.Tracker
	Vehicle   *vehicle.Manager
	Link      *bluetooth.Link
	Adapters  *bluetooth.AdapterStore
	Scanners  []bluetooth.Scanner
	ExportDir string
	Logger    *zap.Logger

	// SamplePeriod paces the live gauge refresh; zero means
	// config.SamplePeriod.
	SamplePeriod time.Duration
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	deps        Deps
	rpmNeedle   *gauge.Needle
	speedNeedle *gauge.Needle
	history     map[telemetry.Channel]*Series
	recordedRun time.Time // StartTime of the last run written to the vehicle
}

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	width  int
	height int

	tab     Tab
	kind    perf.Kind
	channel telemetry.Channel
	cursor  int // Adapter list selection
	message string

	shared *shared

	// Cached per frame
	reading  telemetry.Reading
	run      perf.Run
	adapters []bluetooth.Adapter
}

// New creates a dashboard model.
func New(deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SamplePeriod <= 0 {
		deps.SamplePeriod = config.SamplePeriod
	}
	history := make(map[telemetry.Channel]*Series, len(telemetry.Channels))
	for _, ch := range telemetry.Channels {
		history[ch] = NewSeries(config.HistoryLen)
	}
	return Model{
		channel: telemetry.ChannelSpeed,
		shared: &shared{
			deps:        deps,
			rpmNeedle:   gauge.NewNeedle(),
			speedNeedle: gauge.NewNeedle(),
			history:     history,
		},
	}
}

// SamplePeriod returns the live sampling interval.
func (m Model) SamplePeriod() time.Duration { return m.shared.deps.SamplePeriod }

// Tab returns the active tab.
func (m Model) Tab() Tab { return m.tab }

// Kind returns the selected test kind.
func (m Model) Kind() perf.Kind { return m.kind }

// Channel returns the channel shown on the logs tab.
func (m Model) Channel() telemetry.Channel { return m.channel }

// Message returns the last notice shown in the status bar.
func (m Model) Message() string { return m.message }

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.sampleCmd(),
		evictCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.rpmNeedle.Update()
		m.shared.speedNeedle.Update()
		m.run = m.shared.deps.Tracker.Run()
		if m.shared.deps.Adapters != nil {
			m.adapters = m.shared.deps.Adapters.Snapshot()
			m.cursor = min(m.cursor, max(len(m.adapters)-1, 0))
		}
		return m, tea.Batch(tickCmd(), m.recordRunCmd())

	case SampleMsg:
		m.applyReading(telemetry.Reading(msg))
		return m, m.sampleCmd()

	case EvictMsg:
		if m.shared.deps.Adapters != nil {
			m.shared.deps.Adapters.Evict(config.AdapterTimeout)
		}
		return m, evictCmd()

	case AdapterMsg:
		if m.shared.deps.Adapters != nil {
			m.shared.deps.Adapters.Add(bluetooth.Discovered(msg))
		}
		return m, nil

	case ScanErrorMsg:
		m.message = "scan: " + msg.Err.Error()
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.message = "export failed: " + msg.Err.Error()
		} else {
			m.message = "exported " + msg.Path
		}
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.message = msg.What + " failed: " + msg.Err.Error()
		} else {
			m.message = msg.What
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) applyReading(r telemetry.Reading) {
	m.reading = r
	m.shared.rpmNeedle.Set(float64(r.RPM), config.MaxRPM)
	m.shared.speedNeedle.Set(r.SpeedKmh, config.MaxSpeedKmh)
	for ch, s := range m.shared.history {
		s.Push(ch.Value(r))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.shared.deps
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stopScanners()
		d.Session.Stop()
		d.Tracker.StopTracking()
		return m, tea.Quit

	case "tab":
		m.tab = (m.tab + 1) % Tab(len(tabNames))
	case "shift+tab":
		m.tab = (m.tab - 1 + Tab(len(tabNames))) % Tab(len(tabNames))
	case "1", "2", "3", "4", "5":
		m.tab = Tab(msg.String()[0] - '1')

	case "r", "R":
		if d.Session.Active() {
			d.Session.Stop()
			m.message = "recording stopped"
		} else {
			d.Session.Start()
			m.message = "recording"
		}
	case "c":
		d.Session.Clear()
		m.message = "log cleared"

	case " ", "space":
		if d.Tracker.Active() {
			d.Tracker.StopTracking()
		} else if err := d.Tracker.StartTracking(m.kind); err != nil {
			m.message = err.Error()
		}
		m.run = d.Tracker.Run()

	case "left", "h":
		switch m.tab {
		case TabPerformance:
			if !d.Tracker.Active() {
				m.kind = m.kind.Prev()
			}
		case TabLogs:
			m.channel = m.channel.Prev()
		}
	case "right", "l":
		switch m.tab {
		case TabPerformance:
			if !d.Tracker.Active() {
				m.kind = m.kind.Next()
			}
		case TabLogs:
			m.channel = m.channel.Next()
		}

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.adapters)-1 {
			m.cursor++
		}
	case "enter":
		if m.tab == TabDiagnostics {
			m.connectSelected()
		}
	case "x":
		if m.tab == TabDiagnostics && d.Link != nil {
			d.Link.Disconnect()
			m.message = "adapter disconnected"
		}
	case "C":
		if m.tab == TabDiagnostics && d.Vehicle != nil {
			d.Vehicle.ClearDiagnosticCodes()
			m.message = "diagnostic codes cleared"
		} else {
			d.Session.Clear()
			m.message = "log cleared"
		}

	case "e":
		return m, m.exportCmd(export.FormatCSV)
	case "E":
		return m, m.exportCmd(export.FormatChart)

	case "D":
		if m.tab == TabVehicle {
			return m, m.vehicleCmd("demo vehicle loaded", d.Vehicle.LoadDemo)
		}
	case "X":
		if m.tab == TabVehicle {
			return m, m.vehicleCmd("vehicle reset", d.Vehicle.ResetToDefaults)
		}
	}

	return m, nil
}

func (m *Model) connectSelected() {
	link := m.shared.deps.Link
	if link == nil || m.cursor >= len(m.adapters) {
		return
	}
	a := m.adapters[m.cursor]
	if err := link.Connect(a); err != nil {
		m.message = err.Error()
		return
	}
	m.message = "connected to " + a.DisplayName()
	m.shared.deps.Logger.Info("adapter connected", zap.String("mac", a.MAC), zap.String("name", a.Name))
}

// exportCmd writes the session log to the export directory off the UI loop.
func (m Model) exportCmd(f export.Format) tea.Cmd {
	d := m.shared.deps
	entries := d.Session.Entries()
	ch := m.channel
	path := filepath.Join(d.ExportDir, export.DefaultName(d.Clock.Now(), f))
	return func() tea.Msg {
		if len(entries) == 0 {
			return ExportedMsg{Err: errEmptyLog}
		}
		err := export.ToFile(path, entries, ch)
		if err != nil {
			d.Logger.Warn("export failed", zap.String("path", path), zap.Error(err))
		}
		return ExportedMsg{Path: path, Err: err}
	}
}

func (m Model) vehicleCmd(what string, fn func(context.Context) error) tea.Cmd {
	if m.shared.deps.Vehicle == nil {
		return nil
	}
	return func() tea.Msg {
		return SavedMsg{What: what, Err: fn(context.Background())}
	}
}

// recordRunCmd stores a newly completed 0-100 time as the vehicle's
// reference acceleration. Runs aborted before 100 km/h are ignored.
func (m Model) recordRunCmd() tea.Cmd {
	s := m.shared
	run := m.run
	if s.deps.Vehicle == nil || run.Kind != perf.ZeroToHundred || !run.ReachedTarget() ||
		run.Elapsed == 0 || run.StartTime.Equal(s.recordedRun) {
		return nil
	}
	s.recordedRun = run.StartTime
	secs := run.ElapsedSeconds()
	return func() tea.Msg {
		err := s.deps.Vehicle.RecordAcceleration(context.Background(), secs)
		return SavedMsg{What: fmt.Sprintf("0-100 km/h in %.1fs saved", secs), Err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing " + config.AppName + "..."
	}

	bodyH := max(m.height-2, 8)

	d := m.shared.deps
	linkName, connected := "", true
	if d.Link != nil {
		st := d.Link.Status()
		linkName, connected = st.Name, st.Connected
	}
	menuBar := ui.RenderMenuBar(m.width, tabNames, int(m.tab), linkName, connected)

	var body string
	switch m.tab {
	case TabDashboard:
		body = m.viewDashboard(m.width, bodyH)
	case TabVehicle:
		body = m.viewVehicle(m.width, bodyH)
	case TabPerformance:
		body = m.viewPerformance(m.width, bodyH)
	case TabDiagnostics:
		body = m.viewDiagnostics(m.width, bodyH)
	case TabLogs:
		body = m.viewLogs(m.width, bodyH)
	}

	status := ui.Status{
		Recording: d.Session.Active(),
		Entries:   d.Session.Len(),
		Skipped:   d.Session.Skipped(),
		Message:   m.message,
		Help:      m.help(),
	}
	if m.run.Active {
		status.Test = m.run.Kind.String()
	}
	statusBar := ui.RenderStatusBar(m.width, status)

	return ui.ComposeLayout(menuBar, body, statusBar)
}

func (m Model) help() string {
	switch m.tab {
	case TabPerformance:
		return "</> test  space start/stop  q quit"
	case TabLogs:
		return "</> channel  r rec  c clear  e csv  E chart  q quit"
	case TabDiagnostics:
		return "up/down select  enter connect  x disconnect  C clear codes  q quit"
	case TabVehicle:
		return "D demo  X reset  q quit"
	default:
		return "tab switch  r rec  space test  q quit"
	}
}

// StartScanners starts the adapter scanners, forwarding results to p.
// Must be called before p.Run().
func (m *Model) StartScanners(p *tea.Program) error {
	for _, s := range m.shared.deps.Scanners {
		if err := s.Start(func(d bluetooth.Discovered) { p.Send(AdapterMsg(d)) }); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) stopScanners() {
	for _, s := range m.shared.deps.Scanners {
		s.Stop()
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) sampleCmd() tea.Cmd {
	src := m.shared.deps.Source
	return tea.Tick(m.shared.deps.SamplePeriod, func(time.Time) tea.Msg {
		return SampleMsg(src.Sample())
	})
}

func evictCmd() tea.Cmd {
	return tea.Tick(config.EvictInterval, func(t time.Time) tea.Msg {
		return EvictMsg(t)
	})
}
