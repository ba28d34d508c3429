package flash

import (
	"sync"
	"sync/atomic"

	"avionics/core"

	"tinygo.org/x/drivers"
)

// Bus is the SPI connection to the chip. Each Tx is one chip-select frame.
type Bus = drivers.SPI

// Device is the exclusively owned handle to the flash chip. It is created
// once at boot and lent to every collaborator; all operations on it are
// serialized by a single bus lock held for the whole transaction,
// including the busy-poll phase.
type Device struct {
	mu     sync.Mutex
	bus    Bus
	cfg    Config
	id     ID
	status atomic.Uint32 // last status byte read, for diagnostics
}

// Initialize takes ownership of the bus, reads the chip identity and
// verifies it. A mismatch is reported as *IdentityMismatchError; deciding
// that it is fatal is up to the caller.
func Initialize(bus Bus, opts ...Option) (*Device, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev := &Device{
		bus: bus,
		cfg: cfg,
	}

	var id ID
	err := dev.Exclusive(func(s *Session) error {
		var err error
		id, err = s.ReadID()
		return err
	})
	if err != nil {
		return nil, err
	}
	core.RecordEvent(core.EvtIdentity, 0, id.Packed(), 0)

	if id != cfg.ExpectedID {
		core.DebugPrintln("[FLASH] identity mismatch: " + core.Hex32(id.Packed()))
		return nil, &IdentityMismatchError{Expected: cfg.ExpectedID, Actual: id}
	}
	dev.id = id
	core.DebugPrintln("[FLASH] ready, id=" + core.Hex32(id.Packed()))

	return dev, nil
}

// ID returns the identity read at Initialize
func (d *Device) ID() ID {
	return d.id
}

// Config returns the polling budget in use
func (d *Device) Config() Config {
	return d.cfg
}

// LastStatus returns the most recently read status register without
// touching the bus.
func (d *Device) LastStatus() Status {
	return Status(d.status.Load())
}

// Exclusive runs fn with the bus lock held. Use it for sequences that must
// not interleave with other tasks, such as erase followed by programming.
// The Session is only valid inside fn.
func (d *Device) Exclusive(fn func(s *Session) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := &Session{dev: d}
	err := fn(s)
	s.dev = nil
	return err
}

// ReadID re-reads the chip identity.
func (d *Device) ReadID() (ID, error) {
	var id ID
	err := d.Exclusive(func(s *Session) error {
		var err error
		id, err = s.ReadID()
		return err
	})
	return id, err
}

// ReadStatus reads the status register. It has no side effects.
func (d *Device) ReadStatus() (Status, error) {
	var st Status
	err := d.Exclusive(func(s *Session) error {
		var err error
		st, err = s.ReadStatus()
		return err
	})
	return st, err
}

// ProgramPage writes up to one page at addr. Bytes that run past the end of
// the page wrap to the start of the same page; callers split writes at page
// boundaries. Returns ErrBusy without side effects when the chip is busy.
func (d *Device) ProgramPage(addr uint32, data []byte) error {
	return d.Exclusive(func(s *Session) error {
		return s.ProgramPage(addr, data)
	})
}

// ReadPage fills buf starting at addr in one continuous read, which may
// span any number of pages or sectors.
func (d *Device) ReadPage(addr uint32, buf []byte) error {
	return d.Exclusive(func(s *Session) error {
		return s.ReadPage(addr, buf)
	})
}

// EraseSector erases the 64 KiB sector containing addr.
func (d *Device) EraseSector(addr uint32) error {
	return d.Exclusive(func(s *Session) error {
		return s.EraseSector(addr)
	})
}

// EraseParamSector erases the 4 KiB parameter sector containing addr.
func (d *Device) EraseParamSector(addr uint32) error {
	return d.Exclusive(func(s *Session) error {
		return s.EraseParamSector(addr)
	})
}

// EraseDevice erases the whole chip. This can take up to two minutes and
// blocks the bus for the duration.
func (d *Device) EraseDevice() error {
	return d.Exclusive(func(s *Session) error {
		return s.EraseDevice()
	})
}
