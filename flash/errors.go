package flash

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy means the device was mid-operation; nothing was sent and the
	// caller may retry later.
	ErrBusy = errors.New("flash: device busy")

	// ErrTimeout means a program or erase did not finish inside its poll
	// budget. The chip is left in whatever state the hardware reached.
	ErrTimeout = errors.New("flash: operation timed out")

	ErrProgramFailed     = errors.New("flash: program error reported")
	ErrEraseFailed       = errors.New("flash: erase error reported")
	ErrWriteEnableFailed = errors.New("flash: write enable latch not set")
	ErrPageOverflow      = errors.New("flash: more than one page of data")
	ErrAddressRange      = errors.New("flash: address out of range")
	ErrNotParamSector    = errors.New("flash: address outside parameter sectors")
	ErrProtectedSector   = errors.New("flash: sector holds the parameter region")
	ErrSessionClosed     = errors.New("flash: session used outside its transaction")
)

// ID is the JEDEC identity returned by the read-identity command
type ID struct {
	Manufacturer byte
	DeviceMSB    byte
	DeviceLSB    byte
}

// ExpectedID is the identity of the flight flash part
var ExpectedID = ID{ManufacturerID, DeviceIDMSB, DeviceIDLSB}

// Packed returns the identity as 0xMMDDDD
func (id ID) Packed() uint32 {
	return uint32(id.Manufacturer)<<16 | uint32(id.DeviceMSB)<<8 | uint32(id.DeviceLSB)
}

// IdentityMismatchError indicates the chip on the bus is not the expected part.
type IdentityMismatchError struct {
	Expected ID
	Actual   ID
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("flash: identity mismatch: expected 0x%06X, device has 0x%06X",
		e.Expected.Packed(), e.Actual.Packed())
}

// IsBusy reports whether err is the transient busy outcome
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
