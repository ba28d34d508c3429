// Package boot brings up flight storage: it verifies the flash chip, loads
// or creates the configuration record and finds where the data log resumes,
// before any logging task starts.
package boot

import (
	"errors"
	"fmt"

	"avionics/config"
	"avionics/core"
	"avionics/flash"
	"avionics/logscan"
)

// ErrStorageUnavailable means the unit cannot fly: the flash chip could not
// be verified or read.
var ErrStorageUnavailable = errors.New("boot: flight storage unavailable")

// System is what the boot sequence hands to the flight tasks.
type System struct {
	Flash     *flash.Device
	Store     *config.Store
	Persister *Persister

	// Record as loaded at boot, with EndDataAddress set to the resume point
	Record       config.Record
	UsedDefaults bool

	ResumeAddress uint32
	// LogFull means no erased page is left; ResumeAddress is the region end
	LogFull bool
}

// Run initializes the flash device on bus, loads the configuration record
// (falling back to defaults on an invalid image) and scans the data region.
// Identity or bus failures wrap ErrStorageUnavailable.
func Run(bus flash.Bus, opts ...Option) (*System, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev, err := flash.Initialize(bus, cfg.Flash...)
	if err != nil {
		core.DebugPrintln("[BOOT] flash init failed: " + err.Error())
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	sys := &System{
		Flash: dev,
		Store: config.NewStore(dev),
	}

	rec, used, loadErr := loadRecord(sys.Store, cfg)
	switch {
	case loadErr == nil:
	case used:
		// Defaults could not be written; fly on them and let the persister retry
		core.DebugPrintln("[BOOT] defaults not persisted: " + loadErr.Error())
	default:
		return nil, fmt.Errorf("%w: load configuration: %w", ErrStorageUnavailable, loadErr)
	}
	sys.UsedDefaults = used

	scanner := logscan.NewScanner(dev,
		logscan.WithStrategy(cfg.Strategy),
		logscan.WithBusyRetries(cfg.BusyRetries, cfg.Backoff),
		logscan.WithScannerSleep(cfg.Sleep),
	)
	resume, err := scanner.Scan(logscan.DataRegion(cfg.Capacity))
	switch {
	case err == nil:
	case errors.Is(err, logscan.ErrFull):
		sys.LogFull = true
	default:
		return nil, fmt.Errorf("%w: scan data region: %w", ErrStorageUnavailable, err)
	}
	sys.ResumeAddress = resume

	sys.Persister = newPersister(sys.Store, rec, cfg)
	if loadErr != nil {
		sys.Persister.pending = true
	}
	if resume > rec.EndDataAddress {
		err := sys.Persister.Update(func(r *config.Record) {
			r.EndDataAddress = resume
		})
		if err != nil {
			core.DebugPrintln("[BOOT] resume address not persisted: " + err.Error())
		}
	}
	sys.Record = sys.Persister.Record()

	core.DebugPrintln("[BOOT] state=" + sys.Record.State.String() +
		" flags=" + sys.Record.Flags.String() +
		" resume=" + core.Hex32(resume))
	return sys, nil
}

func loadRecord(store *config.Store, cfg Config) (config.Record, bool, error) {
	rec, used, err := store.LoadOrDefault()
	for i := 0; i < cfg.BusyRetries && flash.IsBusy(err); i++ {
		cfg.Sleep(cfg.Backoff)
		rec, used, err = store.LoadOrDefault()
	}
	return rec, used, err
}
