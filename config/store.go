package config

import (
	"errors"

	"avionics/core"
	"avionics/flash"
)

// ErrStateRegression is returned by Save when the record's state is behind
// the persisted one. Only Reset may move the state backwards.
var ErrStateRegression = errors.New("config: flight state moved backwards")

// Store persists the record in the parameter region of the flash chip.
// Every operation runs as one bus transaction, so concurrent Saves are
// serialized by the device lock. Callers that read-modify-write a shared
// record still need their own serialization (see boot.Persister).
type Store struct {
	dev  *flash.Device
	base uint32
}

// NewStore returns a store on dev at the start of the parameter region.
func NewStore(dev *flash.Device) *Store {
	return &Store{dev: dev, base: flash.ParamRegionStart}
}

// Device returns the flash device the store writes to
func (s *Store) Device() *flash.Device {
	return s.dev
}

func (s *Store) read(sess *flash.Session) (Record, error) {
	var buf [RecordSize]byte
	var rec Record
	if err := sess.ReadPage(s.base, buf[:]); err != nil {
		return rec, err
	}
	if err := rec.Decode(buf[:]); err != nil {
		return rec, err
	}
	if !rec.Identified() {
		return rec, ErrInvalidRecord
	}
	return rec, nil
}

// Load reads the record back. An image whose identity byte does not match,
// including an erased region, is ErrInvalidRecord; the caller falls back to
// Defaults and saves them.
func (s *Store) Load() (Record, error) {
	var rec Record
	err := s.dev.Exclusive(func(sess *flash.Session) error {
		var err error
		rec, err = s.read(sess)
		return err
	})
	if err != nil {
		core.RecordEvent(core.EvtConfigLoad, 1, s.base, 0)
		return Record{}, err
	}
	core.RecordEvent(core.EvtConfigLoad, 0, s.base, uint32(rec.State))
	return rec, nil
}

// Save persists rec. In-flight and recording flags already present in the
// persisted record are merged into rec before writing, so rec reflects what
// is on flash afterwards. A state behind the persisted one is refused.
//
// The sector is erased and then programmed page by page; a failure part way
// leaves an invalid record until the next successful Save.
func (s *Store) Save(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return s.write(rec, true)
}

// Reset writes the defaults, clearing sticky flags and flight state.
func (s *Store) Reset() (Record, error) {
	rec := Defaults()
	if err := s.write(&rec, false); err != nil {
		return rec, err
	}
	core.DebugPrintln("[CONFIG] reset to defaults")
	return rec, nil
}

// LoadOrDefault loads the record, or on an invalid image persists the
// defaults and returns them with usedDefaults set. Flash errors are
// returned as-is. If persisting the defaults fails, the defaults are still
// returned along with the error so the caller can fly on them.
func (s *Store) LoadOrDefault() (rec Record, usedDefaults bool, err error) {
	rec, err = s.Load()
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, ErrInvalidRecord) {
		return Record{}, false, err
	}

	core.DebugPrintln("[CONFIG] no valid record, using defaults")
	rec, err = s.Reset()
	return rec, true, err
}

func (s *Store) write(rec *Record, merge bool) error {
	err := s.dev.Exclusive(func(sess *flash.Session) error {
		if merge {
			prev, err := s.read(sess)
			switch {
			case err == nil:
				if rec.State < prev.State {
					return ErrStateRegression
				}
				rec.Flags |= prev.Flags & StickyFlags
			case errors.Is(err, ErrInvalidRecord):
				// nothing persisted yet
			default:
				return err
			}
		}

		var img [RecordSize]byte
		if err := rec.Encode(img[:]); err != nil {
			return err
		}

		if err := sess.EraseParamSector(s.base); err != nil {
			return err
		}
		for off := 0; off < len(img); {
			addr := s.base + uint32(off)
			n := int(flash.PageBase(addr) + flash.PageSize - addr)
			if n > len(img)-off {
				n = len(img) - off
			}
			if err := sess.ProgramPage(addr, img[off:off+n]); err != nil {
				return err
			}
			off += n
		}
		return nil
	})

	if err != nil {
		core.RecordEvent(core.EvtConfigSave, 1, s.base, uint32(rec.State))
		core.DebugAsync("[CONFIG] save failed: " + err.Error())
		return err
	}
	core.RecordEvent(core.EvtConfigSave, 0, s.base, uint32(rec.State))
	return nil
}
