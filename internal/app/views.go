package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/gauge"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/stats"
	"tune-dash.klederson.com/internal/telemetry"
	"tune-dash.klederson.com/internal/ui"
	"tune-dash.klederson.com/internal/vehicle"
)

var (
	rpmDial = gauge.Dial{
		Label:   "ENGINE",
		Unit:    "rpm",
		Max:     config.MaxRPM,
		Redline: config.RedlineRPM,
	}
	speedDial = gauge.Dial{
		Label: "SPEED",
		Unit:  "km/h",
		Max:   config.MaxSpeedKmh,
	}
)

// framed renders content lines produced for a w-4 by h-4 area inside a
// titled panel.
func framed(title string, w, h int, content string, active bool) string {
	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}
	return ui.RenderPanel(title, w, h, lines, active)
}

func (m Model) viewDashboard(w, h int) string {
	dialH := h * 3 / 5
	cols := ui.Split(w, 2)
	dials := ui.Columns(
		framed("RPM", cols[0], dialH, rpmDial.Render(cols[0]-4, dialH-4, float64(m.reading.RPM), m.shared.rpmNeedle), false),
		framed("SPEED", cols[1], dialH, speedDial.Render(cols[1]-4, dialH-4, m.reading.SpeedKmh, m.shared.speedNeedle), false),
	)

	barW := max(cols[0]-28, 5)
	r := m.reading
	sensors := []string{
		meter("Throttle", r.ThrottlePct/100, fmt.Sprintf("%5.1f %%", r.ThrottlePct), barW, ui.LevelColor(r.ThrottlePct/100, 0.8, 0.95)),
		meter("Boost", telemetry.ChannelBoost.Value(r)/100, fmt.Sprintf("%5.2f bar", telemetry.ChannelBoost.Value(r)/100*vehicle.MaxBoostBar), barW, ui.ColorInfo),
		meter("MAF", r.MAFGramsPerS/30, fmt.Sprintf("%5.1f g/s", r.MAFGramsPerS), barW, ui.ColorNeonGreen),
		meter("O2", r.O2Volts/1.2, fmt.Sprintf("%5.2f V", r.O2Volts), barW, ui.ColorNeonGreen),
		meter("Timing", r.TimingDegrees/vehicle.MaxIgnitionTiming, fmt.Sprintf("%5.1f deg", r.TimingDegrees), barW, ui.ColorNeonGreen),
	}

	d := m.shared.deps
	rec := ui.StyleStatusIdle.Render("IDLE")
	if d.Session.Active() {
		rec = ui.StyleStatusRecording.Render("RECORDING")
	}
	sparkW := max(cols[1]-18, 5)
	trends := []string{
		ui.StyleLabel.Render("  Log      ") + rec + ui.StyleValue.Render(fmt.Sprintf("  %d entries", d.Session.Len())),
		"",
		ui.StyleLabel.Render("  RPM      ") + ui.StyleValue.Render(ui.Sparkline(m.shared.history[telemetry.ChannelRPM].Values(), sparkW)),
		ui.StyleLabel.Render("  Speed    ") + ui.StyleValue.Render(ui.Sparkline(m.shared.history[telemetry.ChannelSpeed].Values(), sparkW)),
		ui.StyleLabel.Render("  Throttle ") + ui.StyleValue.Render(ui.Sparkline(m.shared.history[telemetry.ChannelThrottle].Values(), sparkW)),
	}

	lowH := h - dialH
	return ui.Rows(dials, ui.Columns(
		ui.RenderPanel("SENSORS", cols[0], lowH, sensors, false),
		ui.RenderPanel("TRENDS", cols[1], lowH, trends, false),
	))
}

func meter(label string, frac float64, value string, width int, color lipgloss.Color) string {
	return ui.StyleLabel.Render(fmt.Sprintf("  %-9s", label)) +
		ui.RenderBar(frac, width, color) + " " +
		ui.StyleValue.Render(value)
}

func (m Model) viewPerformance(w, h int) string {
	cols := ui.Split(w, 2)
	run := m.run

	kinds := make([]string, 0, len(perf.Kinds))
	for _, k := range perf.Kinds {
		if k == m.kind {
			kinds = append(kinds, ui.StyleTabActive.Render(k.String()))
		} else {
			kinds = append(kinds, ui.StyleTabInactive.Render(k.String()))
		}
	}

	state := "READY"
	switch {
	case run.Active:
		state = "RUNNING"
	case run.Completed():
		state = "FINISHED"
	}
	fields := []ui.Field{
		{Label: "Test", Value: m.kind.String()},
		{Label: "State", Value: state},
	}
	if run.Started() {
		fields = append(fields,
			ui.Field{Label: "Start speed", Value: fmt.Sprintf("%.1f km/h", run.StartSpeed)},
			ui.Field{Label: "Speed", Value: fmt.Sprintf("%.1f km/h", run.CurrentSpeed)},
			ui.Field{Label: "Elapsed", Value: fmt.Sprintf("%.2f s", run.ElapsedSeconds())},
		)
	}
	if run.Completed() {
		fields = append(fields, ui.Field{Label: "End speed", Value: fmt.Sprintf("%.1f km/h", run.EndSpeed)})
		accel, err := run.AverageAcceleration()
		switch {
		case err == nil:
			fields = append(fields,
				ui.Field{Label: "Avg accel", Value: fmt.Sprintf("%.2f m/s²", accel)},
				ui.Field{Label: "", Value: fmt.Sprintf("%.2f g", accel/9.80665)},
			)
		case errors.Is(err, perf.ErrDivisionUndefined):
			fields = append(fields, ui.Field{Label: "Avg accel", Value: "n/a (no time elapsed)"})
		}
	}
	if d := m.shared.deps; d.Vehicle != nil {
		if ref := d.Vehicle.Performance().Acceleration; ref > 0 {
			fields = append(fields, ui.Field{Label: "Last 0-100", Value: fmt.Sprintf("%.1f s", ref)})
		}
	}

	lines := append([]string{" " + strings.Join(kinds, " "), ""}, ui.RenderFields(fields)...)
	left := ui.RenderPanel("PERFORMANCE TEST", cols[0], h, lines, run.Active)

	caption := fmt.Sprintf("%.1f / %.0f s", run.ElapsedSeconds(), config.RollingRaceSeconds)
	ring := gauge.RenderRing(cols[1]-4, h-4, run.Progress(), caption)
	right := framed("ELAPSED", cols[1], h, ring, run.Active)

	return ui.Columns(left, right)
}

func (m Model) viewLogs(w, h int) string {
	d := m.shared.deps
	entries := d.Session.Entries()
	innerW := w - 4

	sum := stats.Summarize(entries, config.RedlineRPM)
	summary := ui.RenderFields([]ui.Field{
		{Label: "Entries", Value: fmt.Sprintf("%d (%s)", sum.Count, sum.Duration)},
		{Label: "Speed", Value: fmt.Sprintf("mean %.1f  max %.1f  sd %.1f km/h", sum.Speed.Mean, sum.Speed.Max, sum.Speed.StdDev)},
		{Label: "RPM", Value: fmt.Sprintf("mean %.0f  max %.0f  sd %.0f", sum.RPM.Mean, sum.RPM.Max, sum.RPM.StdDev)},
		{Label: "Throttle", Value: fmt.Sprintf("mean %.1f %%", sum.Throttle.Mean)},
		{Label: "Redline", Value: fmt.Sprintf("%.0f%% of samples", sum.OverRedline*100)},
	})

	chart := []string{
		ui.StyleLabel.Render(fmt.Sprintf("  < %s (%s) >", m.channel, m.channel.Unit())),
		"  " + ui.StyleValue.Render(ui.Sparkline(stats.Values(entries, m.channel), innerW-4)),
		"",
	}

	header := ui.StyleLabel.Render(fmt.Sprintf("  %-12s %6s %7s %6s %6s %5s %5s",
		"TIME", "RPM", "SPEED", "THR", "MAF", "O2", "TIM"))
	rows := []string{header}
	tableH := max(h-4-len(summary)-len(chart)-2, 1)
	start := max(len(entries)-tableH, 0)
	for i := len(entries) - 1; i >= start; i-- {
		e := entries[i]
		rows = append(rows, ui.StyleValue.Render(fmt.Sprintf("  %-12s %6d %7.1f %6.1f %6.2f %5.2f %5.1f",
			e.Timestamp.Format("15:04:05"), e.Reading.RPM, e.Reading.SpeedKmh, e.Reading.ThrottlePct,
			e.Reading.MAFGramsPerS, e.Reading.O2Volts, e.Reading.TimingDegrees)))
	}
	if len(entries) == 0 {
		rows = append(rows, ui.StyleHelp.Render("  No entries. Press r to record."))
	}

	lines := append(append(append(summary, ""), chart...), rows...)
	return ui.RenderPanel("DATA LOG", w, h, lines, d.Session.Active())
}

func (m Model) viewVehicle(w, h int) string {
	cols := ui.Split(w, 2)
	b := m.shared.deps.Vehicle.Bundle()

	var info []string
	if b.Vehicle == nil {
		info = []string{"", ui.StyleHelp.Render("  No vehicle configured. Press D to load the demo.")}
	} else {
		v := b.Vehicle
		info = ui.RenderFields([]ui.Field{
			{Label: "Vehicle", Value: v.Title()},
			{Label: "Engine", Value: fmt.Sprintf("%.1fL %s", v.EngineSize, v.EngineCode)},
			{Label: "Fuel", Value: string(v.FuelType)},
			{Label: "Gearbox", Value: string(v.Transmission)},
		})
		if len(v.Modifications) > 0 {
			info = append(info, "", ui.StylePanelTitle.Render("MODIFICATIONS"))
			for _, mod := range v.Modifications {
				info = append(info, ui.StyleValue.Render("  "+mod.Name)+ui.StyleLabel.Render(fmt.Sprintf(" [%s] %s", mod.Type, mod.Details)))
			}
		}
	}
	p := b.Performance
	info = append(info, "", ui.StylePanelTitle.Render("PERFORMANCE"))
	info = append(info, ui.RenderFields([]ui.Field{
		{Label: "Power", Value: fmt.Sprintf("%.0f hp", p.Horsepower)},
		{Label: "Torque", Value: fmt.Sprintf("%.0f Nm", p.Torque)},
		{Label: "0-100", Value: fmt.Sprintf("%.1f s", p.Acceleration)},
		{Label: "Economy", Value: fmt.Sprintf("%.1f L/100km", p.FuelConsumption)},
	})...)

	t := b.Tune
	tune := ui.RenderFields([]ui.Field{
		{Label: "Ignition", Value: fmt.Sprintf("%.1f deg", t.IgnitionTiming)},
		{Label: "Boost", Value: fmt.Sprintf("%.2f bar", t.BoostControl)},
		{Label: "Rev limit", Value: fmt.Sprintf("%d rpm", t.RevLimit)},
		{Label: "Launch", Value: fmt.Sprintf("%d rpm", t.LaunchControl)},
	})
	if len(t.FuelMapping) > 0 {
		tune = append(tune, "", ui.StyleLabel.Render(fmt.Sprintf("  %6s %6s %6s", "RPM", "LOAD", "VALUE")))
		for _, fm := range t.FuelMapping {
			tune = append(tune, ui.StyleValue.Render(fmt.Sprintf("  %6d %6.2f %6.2f", fm.RPM, fm.Load, fm.Value)))
		}
	}

	return ui.Columns(
		ui.RenderPanel("VEHICLE", cols[0], h, info, false),
		ui.RenderPanel("TUNE PROFILE", cols[1], h, tune, false),
	)
}

func (m Model) viewDiagnostics(w, h int) string {
	cols := ui.Split(w, 2)
	d := m.shared.deps

	linkedMAC := ""
	status := []string{ui.StyleError.Render("  Disconnected")}
	if d.Link != nil {
		st := d.Link.Status()
		linkedMAC = st.MAC
		if st.Connected {
			status = ui.RenderFields([]ui.Field{
				{Label: "Adapter", Value: st.Name},
				{Label: "Since", Value: ui.FormatAge(d.Clock.Now(), st.Since)},
			})
		}
	}
	left := ui.RenderAdapterList(m.adapters, cols[0], h, m.cursor, linkedMAC, d.Clock.Now())

	lines := append([]string{}, status...)
	lines = append(lines, "", ui.StylePanelTitle.Render("DIAGNOSTIC CODES"))
	codes := d.Vehicle.DiagnosticCodes()
	if len(codes) == 0 {
		lines = append(lines, ui.StyleHelp.Render("  No diagnostic codes found"))
	}
	for _, c := range codes {
		lines = append(lines, "  "+severityStyle(c.Severity).Render(fmt.Sprintf("%-6s %-8s", c.Code, c.Severity))+
			ui.StyleLabel.Render(" "+c.Description))
	}

	r := m.reading
	lines = append(lines, "", ui.StylePanelTitle.Render("SENSOR DATA"))
	lines = append(lines, ui.RenderFields([]ui.Field{
		{Label: "MAF Sensor", Value: fmt.Sprintf("%.2f g/s", r.MAFGramsPerS)},
		{Label: "O2 Sensor", Value: fmt.Sprintf("%.2f V", r.O2Volts)},
		{Label: "Timing Advance", Value: fmt.Sprintf("%.1f deg", r.TimingDegrees)},
		{Label: "Throttle Position", Value: fmt.Sprintf("%.1f %%", r.ThrottlePct)},
	})...)

	return ui.Columns(left, ui.RenderPanel("DIAGNOSTICS", cols[1], h, lines, false))
}

func severityStyle(s vehicle.Severity) lipgloss.Style {
	switch s {
	case vehicle.SeverityCritical, vehicle.SeverityHigh:
		return ui.StyleError
	case vehicle.SeverityMedium:
		return ui.StyleWarning
	default:
		return ui.StyleValue
	}
}
