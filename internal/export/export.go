// Package export writes recorded telemetry as CSV, JSON or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/telemetry"
)

// ErrUnsupportedFormat is returned by ToFile for an unknown file extension.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{
	"timestamp", "rpm", "speed_kmh", "throttle_pct",
	"maf_grams_per_sec", "o2_volts", "timing_degrees",
}

// WriteCSV writes one row per entry after CSVHeader. Timestamps are RFC3339
// with nanoseconds, in UTC.
func WriteCSV(w io.Writer, entries []recorder.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		r := e.Reading
		row := []string{
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.Itoa(r.RPM),
			ftoa(r.SpeedKmh),
			ftoa(r.ThrottlePct),
			ftoa(r.MAFGramsPerS),
			ftoa(r.O2Volts),
			ftoa(r.TimingDegrees),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]recorder.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]recorder.Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		e, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRow(row []string) (recorder.Entry, error) {
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return recorder.Entry{}, err
	}
	rpm, err := strconv.Atoi(row[1])
	if err != nil {
		return recorder.Entry{}, err
	}
	fs := make([]float64, 5)
	for i := range fs {
		if fs[i], err = strconv.ParseFloat(row[i+2], 64); err != nil {
			return recorder.Entry{}, err
		}
	}
	return recorder.Entry{
		Timestamp: ts,
		Reading: telemetry.Reading{
			RPM:           rpm,
			SpeedKmh:      fs[0],
			ThrottlePct:   fs[1],
			MAFGramsPerS:  fs[2],
			O2Volts:       fs[3],
			TimingDegrees: fs[4],
		},
	}, nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []recorder.Entry) error {
	if entries == nil {
		entries = []recorder.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteChart renders an HTML line chart of one channel over time.
func WriteChart(w io.Writer, entries []recorder.Entry, ch telemetry.Channel) error {
	x := make([]string, len(entries))
	y := make([]opts.LineData, len(entries))
	for i, e := range entries {
		x[i] = e.Timestamp.Format("15:04:05")
		y[i] = opts.LineData{Value: ch.Value(e.Reading)}
	}

	subtitle := fmt.Sprintf("%d samples", len(entries))
	if len(entries) > 0 {
		subtitle += ", from " + entries[0].Timestamp.Format(time.RFC3339)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: config.AppName + " " + ch.String(),
			Theme:     "dark",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{Title: ch.String(), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: ch.Unit()}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries(ch.String(), y,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		)

	return line.Render(w)
}

// Format is an export file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatChart Format = "html"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".html", ".htm":
		return FormatChart, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Write dispatches to the writer for f. ch is only used for charts.
func Write(w io.Writer, f Format, entries []recorder.Entry, ch telemetry.Channel) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatChart:
		return WriteChart(w, entries, ch)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// ToFile writes entries to path in the format implied by its extension.
func ToFile(path string, entries []recorder.Entry, ch telemetry.Channel) (err error) {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := Write(out, f, entries, ch); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// DefaultName returns a timestamped file name for an export.
func DefaultName(now time.Time, f Format) string {
	return fmt.Sprintf("tune-log-%s.%s", now.Format("20060102-150405"), f)
}
