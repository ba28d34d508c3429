package logscan

import (
	"errors"
	"time"

	"avionics/core"
	"avionics/flash"
)

// Scanner runs Scan with a retry budget for busy reads, for callers that
// share the chip with a task that may be mid-erase.
type Scanner struct {
	dev      PageReader
	strategy Strategy
	retries  int
	backoff  time.Duration
	sleep    func(time.Duration)
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithStrategy selects the search strategy. Binary is the default.
func WithStrategy(s Strategy) ScannerOption {
	return func(sc *Scanner) { sc.strategy = s }
}

// WithBusyRetries retries each busy page read up to n times, waiting
// backoff between attempts.
func WithBusyRetries(n int, backoff time.Duration) ScannerOption {
	return func(sc *Scanner) {
		if n >= 0 {
			sc.retries = n
		}
		sc.backoff = backoff
	}
}

// WithScannerSleep replaces the wait used between busy retries.
func WithScannerSleep(sleep func(time.Duration)) ScannerOption {
	return func(sc *Scanner) {
		if sleep != nil {
			sc.sleep = sleep
		}
	}
}

// NewScanner creates a Scanner reading through dev.
func NewScanner(dev PageReader, opts ...ScannerOption) *Scanner {
	sc := &Scanner{
		dev:      dev,
		strategy: Binary,
		retries:  3,
		backoff:  10 * time.Millisecond,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// ReadPage reads through the underlying device, retrying busy outcomes.
func (sc *Scanner) ReadPage(addr uint32, buf []byte) error {
	err := sc.dev.ReadPage(addr, buf)
	for i := 0; i < sc.retries && flash.IsBusy(err); i++ {
		sc.sleep(sc.backoff)
		err = sc.dev.ReadPage(addr, buf)
	}
	return err
}

// Scan searches region for the resume address.
func (sc *Scanner) Scan(region Region) (uint32, error) {
	addr, err := Scan(sc, region, sc.strategy)
	switch {
	case errors.Is(err, ErrFull):
		core.DebugPrintln("[SCAN] data region full")
	case err != nil:
		core.DebugPrintln("[SCAN] failed: " + err.Error())
	default:
		core.DebugPrintln("[SCAN] " + sc.strategy.String() + " resume at " + core.Hex32(addr))
	}
	return addr, err
}
