package bluetooth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

var mockAdapterTemplates = []struct {
	Name      string
	Transport Transport
}{
	{"OBDII", TransportClassic},
	{"OBDLink MX+", TransportClassic},
	{"Vgate iCar Pro", TransportBLE},
	{"Veepeak OBDCheck BLE", TransportBLE},
	{"V-LINK", TransportBLE},
	{"KONNWEI KW902", TransportClassic},
	{"Carista", TransportBLE},
	{"iPhone 15 Pro", TransportBLE},
	{"Galaxy S24 Ultra", TransportBLE},
	{"AirPods Pro", TransportBLE},
	{"Apple Watch", TransportBLE},
	{"JBL Flip 6", TransportClassic},
	{"Tile Tracker", TransportBLE},
}

type mockAdapter struct {
	mac       string
	name      string
	transport Transport
	baseRSSI  float64
	phase     float64
	amplitude float64
	active    bool
}

// MockScanner generates fake adapters for demo mode. At least two OBD
// adapters are always present.
type MockScanner struct {
	mu       sync.Mutex
	rng      *rand.Rand
	adapters []mockAdapter
	interval time.Duration
	sink     Sink
	cancel   context.CancelFunc
}

// NewMockScanner creates a mock scanner. A zero seed uses the current time.
func NewMockScanner(seed int64) *MockScanner {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var obd, other []int
	for i, t := range mockAdapterTemplates {
		if IsOBDAdapter(t.Name) {
			obd = append(obd, i)
		} else {
			other = append(other, i)
		}
	}

	var picked []int
	nOBD, nOther := 2+rng.Intn(2), 3+rng.Intn(3)
	for _, p := range rng.Perm(len(obd))[:nOBD] {
		picked = append(picked, obd[p])
	}
	for _, p := range rng.Perm(len(other))[:nOther] {
		picked = append(picked, other[p])
	}

	adapters := make([]mockAdapter, len(picked))
	for i, ti := range picked {
		tmpl := mockAdapterTemplates[ti]
		adapters[i] = mockAdapter{
			mac:       randomMAC(rng),
			name:      tmpl.Name,
			transport: tmpl.Transport,
			baseRSSI:  -40 - rng.Float64()*50, // -40 to -90 dBm
			phase:     rng.Float64() * 2 * math.Pi,
			amplitude: 3 + rng.Float64()*8, // 3-11 dBm fluctuation
			active:    true,
		}
	}

	return &MockScanner{rng: rng, adapters: adapters, interval: 200 * time.Millisecond}
}

// Start begins the mock scanner.
func (s *MockScanner) Start(sink Sink) error {
	s.sink = sink

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx)
	return nil
}

func (s *MockScanner) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	t := 0.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t += s.interval.Seconds()
			for _, d := range s.Emit(t) {
				s.sink(d)
			}
		}
	}
}

// Emit produces one round of advertisements at simulated time t seconds.
func (s *MockScanner) Emit(t float64) []Discovered {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Discovered, 0, len(s.adapters))
	for i := range s.adapters {
		a := &s.adapters[i]

		// Non-OBD devices come and go.
		if !IsOBDAdapter(a.name) && s.rng.Float64() < 0.005 {
			a.active = !a.active
		}
		if !a.active {
			continue
		}

		rssi := a.baseRSSI + a.amplitude*math.Sin(t*0.5+a.phase) + (s.rng.Float64()-0.5)*4

		out = append(out, Discovered{
			MAC:       a.mac,
			Name:      a.name,
			RSSI:      int16(rssi),
			Transport: a.transport,
		})
	}
	return out
}

// Stop halts the mock scanner.
func (s *MockScanner) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func randomMAC(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}
