package bluetooth

import (
	"fmt"
	"sync/atomic"

	"tinygo.org/x/bluetooth"
)

// Sink receives scanner results. It may be called from any goroutine.
type Sink func(Discovered)

// Scanner discovers nearby adapters until stopped.
type Scanner interface {
	Start(sink Sink) error
	Stop()
}

// BLEScanner handles Bluetooth Low Energy scanning.
type BLEScanner struct {
	adapter *bluetooth.Adapter
	sink    Sink
	running atomic.Bool
}

// NewBLEScanner creates a scanner on the default adapter.
func NewBLEScanner() *BLEScanner {
	return &BLEScanner{
		adapter: bluetooth.DefaultAdapter,
	}
}

// Start begins BLE scanning in a goroutine. Results are passed to sink.
func (s *BLEScanner) Start(sink Sink) error {
	s.sink = sink

	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	s.running.Store(true)
	go func() {
		_ = s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.running.Load() {
				return
			}
			mac := result.Address.String()
			s.sink(Discovered{
				MAC:       mac,
				Name:      advertisedName(mac, result),
				RSSI:      result.RSSI,
				Transport: TransportBLE,
			})
		})
	}()

	return nil
}

// advertisedName falls back to the manufacturer plus the last two octets
// when the device advertises no local name.
func advertisedName(mac string, result bluetooth.ScanResult) string {
	if name := result.LocalName(); name != "" {
		return name
	}
	mfrs := result.ManufacturerData()
	if len(mfrs) == 0 {
		return ""
	}
	mfrName := LookupManufacturer(mfrs[0].CompanyID)
	if mfrName == "" || len(mac) < 17 {
		return mfrName
	}
	return mfrName + " " + mac[12:]
}

// Stop halts the BLE scanner.
func (s *BLEScanner) Stop() {
	s.running.Store(false)
	_ = s.adapter.StopScan()
}
