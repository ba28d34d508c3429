package flash

import (
	"time"

	"avionics/core"
)

// Session issues commands while the bus lock is held by Device.Exclusive.
type Session struct {
	dev *Device
}

// command frames opcode and address into a transfer buffer with room for
// payload bytes
func command(op byte, addr uint32, payload int) []byte {
	buf := make([]byte, commandHeaderSize+payload)
	buf[0] = op
	buf[1] = byte(addr >> 16)
	buf[2] = byte(addr >> 8)
	buf[3] = byte(addr)
	return buf
}

func (s *Session) tx(buf []byte) error {
	if s.dev == nil {
		return ErrSessionClosed
	}
	return s.dev.bus.Tx(buf, buf)
}

// ReadID reads the JEDEC manufacturer and device bytes.
func (s *Session) ReadID() (ID, error) {
	buf := []byte{CmdReadID, 0, 0, 0}
	if err := s.tx(buf); err != nil {
		return ID{}, err
	}
	return ID{Manufacturer: buf[1], DeviceMSB: buf[2], DeviceLSB: buf[3]}, nil
}

// ReadStatus reads the status register.
func (s *Session) ReadStatus() (Status, error) {
	buf := []byte{CmdReadStatus, 0}
	if err := s.tx(buf); err != nil {
		return 0, err
	}
	st := Status(buf[1])
	s.dev.status.Store(uint32(st))
	return st, nil
}

// checkIdle refuses to start anything while a program or erase runs
func (s *Session) checkIdle(op byte, addr uint32) error {
	st, err := s.ReadStatus()
	if err != nil {
		return err
	}
	if st.WriteInProgress() {
		core.RecordEvent(core.EvtBusy, op, addr, uint32(st))
		return ErrBusy
	}
	return nil
}

func (s *Session) writeEnable() error {
	if err := s.tx([]byte{CmdWriteEnable}); err != nil {
		return err
	}
	st, err := s.ReadStatus()
	if err != nil {
		return err
	}
	if !st.WriteEnabled() {
		return ErrWriteEnableFailed
	}
	return nil
}

// waitReady polls the status register until write-in-progress clears or
// timeout elapses. There is no abort: on timeout the chip keeps going and
// the caller only learns that it did not finish in time.
func (s *Session) waitReady(op byte, addr uint32, timeout time.Duration) (Status, error) {
	cfg := &s.dev.cfg
	deadline := cfg.Now().Add(timeout)
	polls := uint32(0)
	for {
		st, err := s.ReadStatus()
		if err != nil {
			return st, err
		}
		polls++
		if !st.WriteInProgress() {
			core.RecordEvent(core.EvtComplete, op, addr, polls)
			return st, nil
		}
		if !cfg.Now().Before(deadline) {
			core.RecordEvent(core.EvtTimeout, op, addr, polls)
			core.DebugAsync("[FLASH] timeout op=" + core.Hex8(op) + " addr=" + core.Hex32(addr))
			return st, ErrTimeout
		}
		cfg.Sleep(cfg.PollInterval)
	}
}

// ProgramPage writes data (at most one page) starting at addr. The chip
// wraps bytes past the page end to the page start; nothing is split here.
func (s *Session) ProgramPage(addr uint32, data []byte) error {
	if len(data) > PageSize {
		return ErrPageOverflow
	}
	if addr > MaxAddress {
		return ErrAddressRange
	}
	if len(data) == 0 {
		return nil
	}
	if err := s.checkIdle(CmdPageProgram, addr); err != nil {
		return err
	}
	if err := s.writeEnable(); err != nil {
		return err
	}

	buf := command(CmdPageProgram, addr, len(data))
	copy(buf[commandHeaderSize:], data)
	core.RecordEvent(core.EvtCommand, CmdPageProgram, addr, uint32(len(data)))
	if err := s.tx(buf); err != nil {
		return err
	}

	st, err := s.waitReady(CmdPageProgram, addr, s.dev.cfg.ProgramTimeout)
	if err != nil {
		return err
	}
	if st.ProgramError() {
		core.RecordEvent(core.EvtProgramError, CmdPageProgram, addr, uint32(st))
		return ErrProgramFailed
	}
	return nil
}

// ReadPage reads len(buf) bytes starting at addr in a single command.
func (s *Session) ReadPage(addr uint32, buf []byte) error {
	if addr > MaxAddress || uint64(addr)+uint64(len(buf)) > Capacity {
		return ErrAddressRange
	}
	if len(buf) == 0 {
		return nil
	}
	if err := s.checkIdle(CmdRead, addr); err != nil {
		return err
	}

	frame := command(CmdRead, addr, len(buf))
	if err := s.tx(frame); err != nil {
		return err
	}
	copy(buf, frame[commandHeaderSize:])
	return nil
}

// EraseSector erases the 64 KiB sector containing addr. The sector that
// holds the parameter region is refused; use EraseParamSector there.
func (s *Session) EraseSector(addr uint32) error {
	if addr > MaxAddress {
		return ErrAddressRange
	}
	if SectorBase(addr) < ParamRegionEnd {
		return ErrProtectedSector
	}
	return s.erase(CmdSectorErase, SectorBase(addr), s.dev.cfg.SectorEraseTimeout)
}

// EraseParamSector erases the 4 KiB sector containing addr. Only the
// bottom parameter-sector area of the chip supports this granularity.
func (s *Session) EraseParamSector(addr uint32) error {
	if addr >= ParamSectorAreaEnd {
		return ErrNotParamSector
	}
	return s.erase(CmdParamErase, ParamSectorBase(addr), s.dev.cfg.ParamEraseTimeout)
}

// EraseDevice erases the whole chip.
func (s *Session) EraseDevice() error {
	if s.dev == nil {
		return ErrSessionClosed
	}
	core.DebugAsync("[FLASH] bulk erase")
	return s.erase(CmdBulkErase, 0, s.dev.cfg.DeviceEraseTimeout)
}

func (s *Session) erase(op byte, addr uint32, timeout time.Duration) error {
	if err := s.checkIdle(op, addr); err != nil {
		return err
	}
	if err := s.writeEnable(); err != nil {
		return err
	}

	var frame []byte
	if op == CmdBulkErase {
		frame = []byte{op}
	} else {
		frame = command(op, addr, 0)
	}
	core.RecordEvent(core.EvtCommand, op, addr, 0)
	if err := s.tx(frame); err != nil {
		return err
	}

	st, err := s.waitReady(op, addr, timeout)
	if err != nil {
		return err
	}
	if st.EraseError() {
		core.RecordEvent(core.EvtEraseError, op, addr, uint32(st))
		return ErrEraseFailed
	}
	return nil
}
