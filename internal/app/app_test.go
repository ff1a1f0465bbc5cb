package app

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/snapshot"
	"tune-dash.klederson.com/internal/telemetry"
	"tune-dash.klederson.com/internal/vehicle"
)

var epoch = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

type harness struct {
	m   Model
	clk *clock.Mock
	d   Deps
}

func newHarness(t *testing.T, perfSpeeds ...float64) *harness {
	t.Helper()
	if len(perfSpeeds) == 0 {
		perfSpeeds = []float64{0}
	}
	c := clock.NewMock(epoch)
	live := telemetry.NewScripted(telemetry.Reading{RPM: 4000, SpeedKmh: 140, ThrottlePct: 55, MAFGramsPerS: 15, O2Volts: 0.9, TimingDegrees: 12})
	d := Deps{
		Clock:     c,
		Source:    live,
		Session:   recorder.NewSession(live, c, time.Second, nil),
		Tracker:   perf.NewTracker(telemetry.Speeds(perfSpeeds...), c, 100*time.Millisecond, nil),
		Vehicle:   vehicle.NewManager(snapshot.NewMemory(), nil),
		Link:      bluetooth.NewLink(c),
		Adapters:  bluetooth.NewAdapterStore(c),
		ExportDir: t.TempDir(),
	}
	t.Cleanup(func() {
		d.Session.Stop()
		d.Tracker.StopTracking()
	})
	h := &harness{m: New(d), clk: c, d: d}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) key(s string) tea.Cmd {
	switch s {
	case "tab":
		return h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "shift+tab":
		return h.send(tea.KeyMsg{Type: tea.KeyShiftTab})
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "left":
		return h.send(tea.KeyMsg{Type: tea.KeyLeft})
	case "right":
		return h.send(tea.KeyMsg{Type: tea.KeyRight})
	case "down":
		return h.send(tea.KeyMsg{Type: tea.KeyDown})
	case "space":
		return h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	default:
		return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func TestTabs(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, TabDashboard, h.m.Tab())

	h.key("tab")
	assert.Equal(t, TabVehicle, h.m.Tab())
	h.key("shift+tab")
	h.key("shift+tab")
	assert.Equal(t, TabLogs, h.m.Tab())
	h.key("tab")
	assert.Equal(t, TabDashboard, h.m.Tab())

	h.key("3")
	assert.Equal(t, TabPerformance, h.m.Tab())
	assert.Equal(t, "Performance", h.m.Tab().String())
}

func TestRecordToggleAndClear(t *testing.T) {
	h := newHarness(t)

	h.key("r")
	require.True(t, h.d.Session.Active())
	h.clk.Advance(time.Second)
	require.Eventually(t, func() bool { return h.d.Session.Len() == 1 }, time.Second, time.Millisecond)

	h.key("r")
	assert.False(t, h.d.Session.Active())
	assert.Equal(t, 1, h.d.Session.Len(), "stopping keeps entries")

	h.key("c")
	assert.Equal(t, 0, h.d.Session.Len())
	assert.Equal(t, "log cleared", h.m.Message())
}

func TestKindSelection(t *testing.T) {
	h := newHarness(t)
	h.key("right")
	assert.Equal(t, perf.ZeroToHundred, h.m.Kind(), "only on the performance tab")

	h.key("3")
	h.key("right")
	assert.Equal(t, perf.QuarterMile, h.m.Kind())
	h.key("left")
	h.key("left")
	assert.Equal(t, perf.RollingRace, h.m.Kind())

	h.key("space")
	require.True(t, h.d.Tracker.Active())
	h.key("right")
	assert.Equal(t, perf.RollingRace, h.m.Kind(), "locked while a test runs")

	h.key("space")
	assert.False(t, h.d.Tracker.Active())
}

func TestChannelSelection(t *testing.T) {
	h := newHarness(t)
	h.key("5")
	assert.Equal(t, telemetry.ChannelSpeed, h.m.Channel())
	h.key("right")
	assert.Equal(t, telemetry.ChannelSpeed.Next(), h.m.Channel())
	h.key("left")
	h.key("left")
	assert.Equal(t, telemetry.ChannelSpeed.Prev(), h.m.Channel())
}

func TestCompletedZeroToHundredIsRecorded(t *testing.T) {
	h := newHarness(t, 0, 0, 110)
	h.key("space")
	require.True(t, h.d.Tracker.Active())

	for i := 0; i < 2; i++ {
		want := h.d.Tracker.Polls() + 1
		h.clk.Advance(100 * time.Millisecond)
		require.Eventually(t, func() bool {
			return h.d.Tracker.Polls() == want || !h.d.Tracker.Active()
		}, time.Second, time.Millisecond)
	}
	require.False(t, h.d.Tracker.Active())

	cmd := h.send(TickMsg(epoch))
	require.NotNil(t, cmd)
	var saved SavedMsg
	for _, msg := range drain(cmd) {
		if s, ok := msg.(SavedMsg); ok {
			saved = s
		}
	}
	require.NoError(t, saved.Err)
	assert.Contains(t, saved.What, "0.2s")
	assert.InDelta(t, 0.2, h.d.Vehicle.Performance().Acceleration, 1e-9)

	// The same run is not recorded twice.
	for _, msg := range drain(h.send(TickMsg(epoch))) {
		_, ok := msg.(SavedMsg)
		assert.False(t, ok)
	}
}

func TestAbortedZeroToHundredIsNotRecorded(t *testing.T) {
	h := newHarness(t, 0, 40)
	before := h.d.Vehicle.Performance().Acceleration

	h.key("space")
	require.True(t, h.d.Tracker.Active())
	h.clk.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return h.d.Tracker.Polls() == 1 }, time.Second, time.Millisecond)

	h.key("space")
	run := h.d.Tracker.Run()
	require.True(t, run.Completed())
	assert.Equal(t, 40.0, run.EndSpeed)
	assert.False(t, run.ReachedTarget())

	for _, msg := range drain(h.send(TickMsg(epoch))) {
		_, ok := msg.(SavedMsg)
		assert.False(t, ok, "an aborted run must not be saved")
	}
	assert.Equal(t, before, h.d.Vehicle.Performance().Acceleration)
}

// drain runs cmd and flattens batches, skipping timer commands.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, drain(c)...)
			}
			return out
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		// A tea.Tick; not interesting here.
		return nil
	}
}

func TestExport(t *testing.T) {
	h := newHarness(t)

	msg := h.key("e")()
	exported := msg.(ExportedMsg)
	assert.ErrorIs(t, exported.Err, errEmptyLog)

	h.key("r")
	h.clk.Advance(time.Second)
	require.Eventually(t, func() bool { return h.d.Session.Len() == 1 }, time.Second, time.Millisecond)

	exported = h.key("e")().(ExportedMsg)
	require.NoError(t, exported.Err)
	assert.True(t, strings.HasSuffix(exported.Path, ".csv"))
	b, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), "\n"))

	h.send(exported)
	assert.Contains(t, h.m.Message(), "exported")

	chart := h.key("E")().(ExportedMsg)
	require.NoError(t, chart.Err)
	assert.True(t, strings.HasSuffix(chart.Path, ".html"))
}

func TestAdaptersAndLink(t *testing.T) {
	h := newHarness(t)
	h.send(AdapterMsg{MAC: "AA:BB:CC:DD:EE:01", Name: "iPhone", RSSI: -40})
	h.send(AdapterMsg{MAC: "AA:BB:CC:DD:EE:02", Name: "OBDII", RSSI: -70, Transport: bluetooth.TransportClassic})
	h.send(TickMsg(epoch))

	h.key("4")
	// OBD adapters sort first.
	h.key("enter")
	require.True(t, h.d.Link.Connected())
	assert.Equal(t, "OBDII", h.d.Link.Status().Name)

	h.key("x")
	assert.False(t, h.d.Link.Connected())

	h.key("down")
	h.key("enter")
	assert.False(t, h.d.Link.Connected())
	assert.Contains(t, h.m.Message(), "not an OBD adapter")
}

func TestVehicleKeys(t *testing.T) {
	h := newHarness(t)
	h.key("D")
	assert.Empty(t, h.d.Vehicle.DiagnosticCodes(), "only on the vehicle tab")

	h.key("2")
	saved := h.key("D")().(SavedMsg)
	require.NoError(t, saved.Err)
	v, ok := h.d.Vehicle.Vehicle()
	require.True(t, ok)
	assert.Equal(t, "BMW", v.Make)

	saved = h.key("X")().(SavedMsg)
	require.NoError(t, saved.Err)
	_, ok = h.d.Vehicle.Vehicle()
	assert.False(t, ok)
}

func TestClearDiagnosticCodes(t *testing.T) {
	h := newHarness(t)
	h.key("2")
	h.key("D")()
	require.NotEmpty(t, h.d.Vehicle.DiagnosticCodes())

	h.key("C")
	assert.NotEmpty(t, h.d.Vehicle.DiagnosticCodes(), "only on the diagnostics tab")

	h.key("4")
	h.key("C")
	assert.Empty(t, h.d.Vehicle.DiagnosticCodes())
	assert.Equal(t, "diagnostic codes cleared", h.m.Message())
	assert.NotContains(t, h.m.View(), "P0300")
}

func TestView_AllTabs(t *testing.T) {
	h := newHarness(t)
	h.send(SampleMsg(h.d.Source.Sample()))
	h.send(TickMsg(epoch))
	h.key("2")
	h.key("D")()

	for tab := TabDashboard; tab <= TabLogs; tab++ {
		h.key(string(rune('1' + tab)))
		out := h.m.View()
		assert.Len(t, strings.Split(out, "\n"), 40, tab.String())
		assert.Contains(t, out, tab.String())
	}

	h.key("1")
	assert.Contains(t, h.m.View(), "4000 rpm")
	h.key("4")
	assert.Contains(t, h.m.View(), "P0300")
}

func TestSamplePeriod(t *testing.T) {
	assert.Equal(t, config.SamplePeriod, New(Deps{}).SamplePeriod())
	assert.Equal(t, 250*time.Millisecond, New(Deps{SamplePeriod: 250 * time.Millisecond}).SamplePeriod())
}

func TestView_BeforeResize(t *testing.T) {
	m := New(Deps{})
	assert.Contains(t, m.View(), "Initializing")
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	h.key("r")
	cmd := h.key("q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, h.d.Session.Active())
}

func TestSeries(t *testing.T) {
	s := NewSeries(3)
	assert.Nil(t, s.Values())
	assert.Equal(t, 0.0, s.Last())

	s.Push(1)
	s.Push(2)
	assert.Equal(t, []float64{1, 2}, s.Values())

	s.Push(3)
	s.Push(4)
	assert.Equal(t, []float64{2, 3, 4}, s.Values())
	assert.Equal(t, 4.0, s.Last())
	assert.Equal(t, 3, s.Len())
}
