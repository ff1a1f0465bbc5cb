package bluetooth

import (
	"bufio"
	"context"
	"net"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// classicRSSI stands in for signal strength: hcitool inquiry results carry
// none.
const classicRSSI = -75

// ClassicScanner discovers Classic (SPP) adapters, the transport most ELM327
// clones use, by running periodic hcitool inquiries.
type ClassicScanner struct {
	device   string
	sink     Sink
	log      *zap.Logger
	cancel   context.CancelFunc
	interval time.Duration
}

// NewClassicScanner creates a classic scanner that re-runs an inquiry on the
// HCI device (e.g. "hci0") every interval. An empty device lets hcitool pick.
func NewClassicScanner(device string, interval time.Duration, log *zap.Logger) *ClassicScanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClassicScanner{
		device:   device,
		interval: interval,
		log:      log,
	}
}

// Start begins periodic inquiries in a goroutine.
func (s *ClassicScanner) Start(sink Sink) error {
	s.sink = sink

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx)
	return nil
}

func (s *ClassicScanner) loop(ctx context.Context) {
	for {
		if err := s.scan(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("classic inquiry failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *ClassicScanner) scan(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "hcitool", s.inquiryArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if d, ok := parseInquiryLine(scanner.Text()); ok {
			s.sink(d)
		}
	}

	return cmd.Wait()
}

func (s *ClassicScanner) inquiryArgs() []string {
	if s.device == "" {
		return []string{"scan", "--flush"}
	}
	return []string{"-i", s.device, "scan", "--flush"}
}

// parseInquiryLine parses one "AA:BB:CC:DD:EE:FF<TAB>Device Name" line of
// hcitool scan output.
func parseInquiryLine(line string) (Discovered, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "Scanning") {
		return Discovered{}, false
	}
	parts := strings.SplitN(line, "\t", 2)
	mac := strings.TrimSpace(parts[0])
	if !isValidMAC(mac) {
		return Discovered{}, false
	}
	name := ""
	if len(parts) == 2 {
		name = strings.TrimSpace(parts[1])
	}
	if name == "n/a" {
		name = ""
	}
	return Discovered{
		MAC:       strings.ToUpper(mac),
		Name:      name,
		RSSI:      classicRSSI,
		Transport: TransportClassic,
	}, true
}

// Stop halts the classic scanner.
func (s *ClassicScanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// isValidMAC accepts only colon-separated 48-bit addresses.
func isValidMAC(mac string) bool {
	if strings.Count(mac, ":") != 5 {
		return false
	}
	hw, err := net.ParseMAC(mac)
	return err == nil && len(hw) == 6
}

// ClassicScannerAvailable checks if hcitool is available on the system.
func ClassicScannerAvailable() bool {
	_, err := exec.LookPath("hcitool")
	return err == nil
}
