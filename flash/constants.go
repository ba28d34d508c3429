// Package flash drives the serial NOR flash that holds flight configuration
// and the append-only data log.
//
// Every command is a single chip-select framed SPI transaction: an opcode,
// an optional 24-bit big-endian address and the payload. Program and erase
// commands must be preceded by write-enable and are followed by status
// polling until the write-in-progress bit clears.
package flash

// Command opcodes
const (
	CmdReadID         = 0x9F
	CmdWriteEnable    = 0x06
	CmdPageProgram    = 0x02
	CmdRead           = 0x03
	CmdSectorErase    = 0xD8 // 64 KiB
	CmdParamErase     = 0x20 // 4 KiB
	CmdReadStatus     = 0x05
	CmdBulkErase      = 0x60 // whole device
	commandHeaderSize = 4    // opcode + 24-bit address
)

// Expected JEDEC identity
const (
	ManufacturerID = 0x01
	DeviceIDMSB    = 0x02
	DeviceIDLSB    = 0x16
)

// Geometry and address map
const (
	PageSize        = 256
	ParamSectorSize = PageSize * 16 // 4 KiB
	SectorSize      = PageSize * 256

	ParamRegionStart = 0x000000
	ParamRegionEnd   = 0x001000 // configuration lives below this
	DataRegionStart  = ParamRegionEnd

	// The bottom 128 KiB of the chip is erasable in 4 KiB parameter sectors
	ParamSectorAreaEnd = 0x020000

	Capacity   = 0x800000 // 8 MiB
	MaxAddress = Capacity - 1

	ErasedByte = 0xFF
)

// PageBase returns the address of the page containing addr
func PageBase(addr uint32) uint32 {
	return addr &^ (PageSize - 1)
}

// SectorBase returns the address of the 64 KiB sector containing addr
func SectorBase(addr uint32) uint32 {
	return addr &^ (SectorSize - 1)
}

// ParamSectorBase returns the address of the 4 KiB sector containing addr
func ParamSectorBase(addr uint32) uint32 {
	return addr &^ (ParamSectorSize - 1)
}
