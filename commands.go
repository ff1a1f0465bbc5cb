package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/api"
	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/export"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/stats"
	"tune-dash.klederson.com/internal/telemetry"
)

var errNoAdapter = errors.New("no adapter linked: pass --adapter <MAC> or use --demo")

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// bind connects the link to the adapter with the given MAC, scanning until
// it shows up or the scan timeout passes. Demo mode is already connected.
func (e *env) bind(ctx context.Context, mac string) error {
	if e.link.Connected() {
		return nil
	}
	if mac == "" {
		return errNoAdapter
	}
	mac = strings.ToUpper(mac)

	store := bluetooth.NewAdapterStore(e.clk)
	found := make(chan struct{}, 1)
	scanners := e.scanners()
	for _, s := range scanners {
		if err := s.Start(func(d bluetooth.Discovered) {
			store.Add(d)
			if strings.EqualFold(d.MAC, mac) {
				select {
				case found <- struct{}{}:
				default:
				}
			}
		}); err != nil {
			permissionHelp(err)
			return err
		}
	}
	defer func() {
		for _, s := range scanners {
			s.Stop()
		}
	}()

	e.log.Info("scanning for adapter", zap.String("mac", mac), zap.Duration("timeout", e.cfg.Bluetooth.ScanTimeout))
	waitFor(ctx, e.cfg.Bluetooth.ScanTimeout, found)

	a, ok := store.Get(mac)
	if !ok {
		return fmt.Errorf("adapter %s not found within %s", mac, e.cfg.Bluetooth.ScanTimeout)
	}
	if err := e.link.Connect(a); err != nil {
		return err
	}
	e.log.Info("adapter linked", zap.String("mac", a.MAC), zap.String("name", a.Name))
	return nil
}

func newRecordCmd() *cobra.Command {
	var (
		duration time.Duration
		output   string
		channel  string
		adapter  string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a telemetry log without the dashboard",
		Long: `Record samples one reading per second until the duration elapses or the
process is interrupted, then writes the log. The output format follows the
file extension: .csv, .json or .html (chart of --channel).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := telemetry.ParseChannel(channel)
			if err != nil {
				return err
			}
			if output == "" {
				output = export.DefaultName(time.Now(), export.FormatCSV)
			}
			if _, err := export.FormatFor(output); err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.bind(ctx, adapter); err != nil {
				return err
			}

			session := e.newSession()
			session.Start()
			waitFor(ctx, duration, nil)
			session.Stop()

			entries := session.Entries()
			if len(entries) == 0 {
				return errors.New("no samples recorded")
			}
			if err := export.ToFile(output, entries, ch); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(entries), output)
			printSummary(cmd.OutOrStdout(), entries)
			if s := session.Skipped(); s > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %d overdue ticks\n", s)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 30*time.Second, "How long to record (0 records until interrupted)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default tune-log-<timestamp>.csv)")
	cmd.Flags().StringVar(&channel, "channel", telemetry.ChannelSpeed.String(), "Channel plotted by .html exports")
	cmd.Flags().StringVar(&adapter, "adapter", "", "MAC of the OBD adapter to link")
	return cmd
}

func newPerfCmd() *cobra.Command {
	var (
		timeout time.Duration
		adapter string
	)
	cmd := &cobra.Command{
		Use:   "perf <kind>",
		Short: "Run one timed performance test",
		Long: `Perf runs a single timed test and prints the result. Kinds:
  0-100, 100-200, quarter-mile, rolling-race`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := perf.ParseKind(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd)
			defer stop()

			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.bind(ctx, adapter); err != nil {
				return err
			}

			tracker := e.newTracker()
			done := make(chan struct{})
			var once sync.Once
			unsubscribe := tracker.Subscribe(func(u perf.Update) {
				if u.Kind == perf.UpdateFinished {
					once.Do(func() { close(done) })
				}
			})
			defer unsubscribe()

			if err := tracker.StartTracking(kind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s running...\n", kind)
			waitFor(ctx, timeout, done)
			tracker.StopTracking()

			run := tracker.Run()
			printRun(cmd.OutOrStdout(), run)

			if kind == perf.ZeroToHundred && run.ReachedTarget() {
				if err := e.vehicle.RecordAcceleration(ctx, run.ElapsedSeconds()); err != nil {
					e.log.Warn("failed to record 0-100 time", zap.Error(err))
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
	cmd.Flags().StringVar(&adapter, "adapter", "", "MAC of the OBD adapter to link")
	return cmd
}

// printRun writes a finished run and its average acceleration.
func printRun(w io.Writer, run perf.Run) {
	fmt.Fprintf(w, "%s  %.2fs  %.1f -> %.1f km/h\n", run.Kind, run.ElapsedSeconds(), run.StartSpeed, run.EndSpeed)
	accel, err := run.AverageAcceleration()
	if err != nil {
		fmt.Fprintf(w, "average acceleration: %v\n", err)
		return
	}
	fmt.Fprintf(w, "average acceleration: %.2f m/s² (%.2f km/h/s)\n", accel, accel/config.KmhToMetersPerSecond)
}

func printSummary(w io.Writer, entries []recorder.Entry) {
	sum := stats.Summarize(entries, config.RedlineRPM)
	fmt.Fprintf(w, "entries  %d over %s\n", sum.Count, sum.Duration)
	fmt.Fprintf(w, "speed    mean %.1f  max %.1f km/h\n", sum.Speed.Mean, sum.Speed.Max)
	fmt.Fprintf(w, "rpm      mean %.0f  max %.0f\n", sum.RPM.Mean, sum.RPM.Max)
	fmt.Fprintf(w, "throttle mean %.0f%%\n", sum.Throttle.Mean)
	if sum.OverRedline > 0 {
		fmt.Fprintf(w, "redline  %.0f%% of samples\n", sum.OverRedline*100)
	}
}

func newSummaryCmd() *cobra.Command {
	var (
		chart   string
		channel string
	)
	cmd := &cobra.Command{
		Use:   "summary <log.csv>",
		Short: "Summarize a CSV log written by record or the dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := telemetry.ParseChannel(channel)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			entries, err := export.ReadCSV(f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if len(entries) == 0 {
				return fmt.Errorf("%s: log is empty", args[0])
			}

			printSummary(cmd.OutOrStdout(), entries)
			if chart != "" {
				if err := export.ToFile(chart, entries, ch); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", chart)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chart, "chart", "", "Also re-export the log to this file (.html charts --channel)")
	cmd.Flags().StringVar(&channel, "channel", telemetry.ChannelSpeed.String(), "Channel plotted by .html exports")
	return cmd
}

func newScanCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List nearby Bluetooth devices, OBD adapters first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()
			if timeout <= 0 {
				timeout = e.cfg.Bluetooth.ScanTimeout
			}

			store := bluetooth.NewAdapterStore(e.clk)
			scanners := e.scanners()
			for _, s := range scanners {
				if err := s.Start(store.Add); err != nil {
					permissionHelp(err)
					return err
				}
			}
			waitFor(ctx, timeout, nil)
			for _, s := range scanners {
				s.Stop()
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MAC\tNAME\tRSSI\tTRANSPORT\tOBD")
			for _, a := range store.Snapshot() {
				obd := ""
				if a.OBD {
					obd = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%.0f\t%s\t%s\n", a.MAC, a.DisplayName(), a.RSSI, a.Transport, obd)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Scan duration (default from config)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		addr    string
		adapter string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recording session and performance tracker over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()
			if addr == "" {
				addr = e.cfg.HTTP.Addr
			}
			if adapter != "" {
				if err := e.bind(ctx, adapter); err != nil {
					return err
				}
			}

			session := e.newSession()
			tracker := e.newTracker()
			srv := api.NewServer(api.Deps{
				Source:  e.source,
				Session: session,
				Tracker: tracker,
				Vehicle: e.vehicle,
				Link:    e.link,
				Logger:  e.log,
			})
			defer srv.Close()

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				e.log.Info("http server listening", zap.String("addr", addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}

			e.log.Info("shutting down")
			session.Stop()
			tracker.StopTracking()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&adapter, "adapter", "", "MAC of the OBD adapter to link")
	return cmd
}

func newVehicleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Inspect or change the stored vehicle profile",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored vehicle, performance and tune data as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := setup(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer e.close()

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(e.vehicle.Bundle())
			},
		},
		&cobra.Command{
			Use:   "demo",
			Short: "Replace the stored profile with the demo vehicle",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := setup(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer e.close()
				if err := e.vehicle.LoadDemo(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "demo vehicle stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove the stored vehicle and restore default tune values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := setup(cmd.Context(), false)
				if err != nil {
					return err
				}
				defer e.close()
				if err := e.vehicle.ResetToDefaults(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "vehicle profile reset")
				return nil
			},
		},
	)
	return cmd
}
