package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/app"
	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/clock"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/logging"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/snapshot"
	"tune-dash.klederson.com/internal/telemetry"
	"tune-dash.klederson.com/internal/vehicle"
)

var (
	flagConfig string
	flagDemo   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tune-dash",
		Short: "TUNE-DASH - Terminal vehicle dashboard with telemetry logging and performance timing",
		Long: `TUNE-DASH samples vehicle telemetry through an OBD-II Bluetooth adapter,
showing live gauges, a once-per-second data log and timed acceleration tests
in a neon terminal dashboard.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for a simulated vehicle without Bluetooth hardware.`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (default $"+config.PathEnv+")")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use a simulated vehicle and fake adapters (no Bluetooth required)")

	rootCmd.AddCommand(
		newRecordCmd(),
		newPerfCmd(),
		newScanCmd(),
		newServeCmd(),
		newSummaryCmd(),
		newVehicleCmd(),
	)
	return rootCmd
}

// env is the wiring shared by every command.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	clk     clock.Clock
	store   snapshot.Store
	vehicle *vehicle.Manager
	link    *bluetooth.Link
	source  telemetry.Source
}

// setup loads configuration and builds the engine. Log output goes to the
// configured file when the terminal belongs to the dashboard, else stderr.
func setup(ctx context.Context, tui bool) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDemo {
		cfg.Demo = true
	}

	var paths []string
	if tui && cfg.Log.File != "" {
		paths = append(paths, cfg.Log.File)
	}
	log, err := logging.NewLogger(cfg.Log.Level, paths...)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := snapshot.Open(cfg)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	mgr := vehicle.NewManager(store, log)
	if err := mgr.Load(ctx); err != nil {
		log.Warn("failed to load vehicle snapshot", zap.Error(err))
	}

	clk := clock.Real{}
	link := bluetooth.NewLink(clk)

	var raw telemetry.Source
	if cfg.Demo {
		raw = telemetry.NewSimulator(clk, 0)
		link.ConnectSimulated()
	} else {
		raw = telemetry.NewRandomSource(0)
	}

	log.Info("engine configured",
		zap.Bool("demo", cfg.Demo),
		zap.String("snapshot_backend", cfg.Snapshot.Backend),
		zap.Duration("sample_period", cfg.Sampling.Period),
		zap.Duration("poll_period", cfg.Sampling.PollPeriod),
	)

	return &env{
		cfg:     cfg,
		log:     log,
		clk:     clk,
		store:   store,
		vehicle: mgr,
		link:    link,
		source:  telemetry.NewGated(raw, link),
	}, nil
}

func (e *env) newSession() *recorder.Session {
	return recorder.NewSession(e.source, e.clk, e.cfg.Sampling.Period, e.log)
}

func (e *env) newTracker() *perf.Tracker {
	return perf.NewTracker(e.source, e.clk, e.cfg.Sampling.PollPeriod, e.log)
}

// scanners returns the discovery backends for the current mode.
func (e *env) scanners() []bluetooth.Scanner {
	if e.cfg.Demo {
		return []bluetooth.Scanner{bluetooth.NewMockScanner(0)}
	}
	out := []bluetooth.Scanner{bluetooth.NewBLEScanner()}
	if bluetooth.ClassicScannerAvailable() {
		out = append(out, bluetooth.NewClassicScanner(e.cfg.Bluetooth.Adapter, e.cfg.Bluetooth.ScanTimeout, e.log))
	}
	return out
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("failed to close snapshot store", zap.Error(err))
	}
	_ = e.log.Sync()
}

func runDashboard(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer e.close()

	dir, err := os.Getwd()
	if err != nil {
		dir = os.TempDir()
	}

	model := app.New(app.Deps{
		Clock:     e.clk,
		Source:    e.source,
		Session:   e.newSession(),
		Tracker:   e.newTracker(),
		Vehicle:   e.vehicle,
		Link:      e.link,
		Adapters:  bluetooth.NewAdapterStore(e.clk),
		Scanners:  e.scanners(),
		ExportDir: dir,
		Logger:    e.log,

		SamplePeriod: e.cfg.Sampling.Period,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS*2),
	)

	if err := model.StartScanners(p); err != nil {
		if !e.cfg.Demo {
			permissionHelp(err)
			return err
		}
	}

	_, err = p.Run()
	return err
}

func permissionHelp(err error) {
	fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
	fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
	fmt.Fprintln(os.Stderr, "Try one of:")
	fmt.Fprintln(os.Stderr, "  sudo ./tune-dash")
	fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./tune-dash")
	fmt.Fprintln(os.Stderr, "  ./tune-dash --demo    (simulated vehicle, no hardware needed)")
}

// waitFor blocks until ctx ends, d elapses (when positive) or done closes.
func waitFor(ctx context.Context, d time.Duration, done <-chan struct{}) {
	var timeout <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ctx.Done():
	case <-timeout:
	case <-done:
	}
}
