// Package flashsim simulates the flight NOR flash at the SPI command level.
//
// The model follows the part's datasheet behavior that the firmware relies
// on: program can only clear bits, bytes past a page end wrap to the page
// start, program/erase need the write-enable latch, and commands other than
// status and identity reads are ignored while the chip is busy.
package flashsim

import (
	"sync"

	"avionics/flash"
)

// Chip is an in-memory flash chip that speaks the SPI command set.
type Chip struct {
	mu sync.Mutex

	mem []byte
	id  flash.ID

	wel       bool
	errBits   flash.Status
	busyPolls int

	// Number of status reads that report write-in-progress after each command
	ProgramPolls     int
	ParamErasePolls  int
	SectorErasePolls int
	BulkErasePolls   int

	// Stuck keeps write-in-progress set forever
	Stuck bool

	// FailProgram/FailErase make the next operations report an error bit
	FailProgram bool
	FailErase   bool

	// TxErr is returned by every transfer when set
	TxErr error

	ops []byte
}

// New returns a factory-erased chip with the expected identity.
func New() *Chip {
	mem := make([]byte, flash.Capacity)
	for i := range mem {
		mem[i] = flash.ErasedByte
	}
	return &Chip{
		mem:              mem,
		id:               flash.ExpectedID,
		ProgramPolls:     1,
		ParamErasePolls:  2,
		SectorErasePolls: 3,
		BulkErasePolls:   5,
	}
}

// SetID changes the identity returned by the read-identity command.
func (c *Chip) SetID(id flash.ID) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

// SetBusy makes the next n status reads report write-in-progress, as if an
// operation started by someone else were still running.
func (c *Chip) SetBusy(n int) {
	c.mu.Lock()
	c.busyPolls = n
	c.mu.Unlock()
}

// Load copies image into memory starting at address zero.
func (c *Chip) Load(image []byte) {
	c.mu.Lock()
	copy(c.mem, image)
	c.mu.Unlock()
}

// Image returns a copy of the whole memory array.
func (c *Chip) Image() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.mem))
	copy(out, c.mem)
	return out
}

// Peek returns a copy of n bytes at addr without going through SPI.
func (c *Chip) Peek(addr uint32, n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, n)
	copy(out, c.mem[addr:])
	return out
}

// Ops returns the opcodes received so far, status reads excluded.
func (c *Chip) Ops() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.ops))
	copy(out, c.ops)
	return out
}

// ResetOps clears the opcode log.
func (c *Chip) ResetOps() {
	c.mu.Lock()
	c.ops = c.ops[:0]
	c.mu.Unlock()
}

func (c *Chip) status() flash.Status {
	st := c.errBits
	if c.wel {
		st |= flash.StatusWriteEnable
	}
	if c.Stuck || c.busyPolls > 0 {
		st |= flash.StatusWriteInProgress
	}
	return st
}

func address(w []byte) uint32 {
	if len(w) < 4 {
		return 0
	}
	return (uint32(w[1])<<16 | uint32(w[2])<<8 | uint32(w[3])) % flash.Capacity
}

// Tx handles one chip-select frame. w and r may alias.
func (c *Chip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.TxErr != nil {
		return c.TxErr
	}
	if len(w) == 0 {
		return nil
	}

	out := make([]byte, len(w))
	op := w[0]
	busy := c.Stuck || c.busyPolls > 0

	switch op {
	case flash.CmdReadStatus:
		st := c.status()
		for i := 1; i < len(out); i++ {
			out[i] = byte(st)
		}
		if c.busyPolls > 0 {
			c.busyPolls--
		}
	case flash.CmdReadID:
		id := []byte{c.id.Manufacturer, c.id.DeviceMSB, c.id.DeviceLSB}
		copy(out[1:], id)
	default:
		c.ops = append(c.ops, op)
		if !busy {
			c.execute(op, w, out)
		}
	}

	if r != nil {
		copy(r, out)
	}
	return nil
}

// Transfer handles a single-byte frame.
func (c *Chip) Transfer(b byte) (byte, error) {
	buf := []byte{b}
	if err := c.Tx(buf, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Chip) execute(op byte, w, out []byte) {
	switch op {
	case flash.CmdWriteEnable:
		c.wel = true

	case flash.CmdRead:
		addr := address(w)
		for i := 4; i < len(w); i++ {
			out[i] = c.mem[addr]
			addr = (addr + 1) % flash.Capacity
		}

	case flash.CmdPageProgram:
		if !c.wel || len(w) < 4 {
			return
		}
		c.wel = false
		c.errBits = 0
		addr := address(w)
		base := flash.PageBase(addr)
		offset := addr - base
		for _, b := range w[4:] {
			c.mem[base+offset] &= b
			offset = (offset + 1) % flash.PageSize
		}
		if c.FailProgram {
			c.errBits |= flash.StatusProgramError
		}
		c.busyPolls = c.ProgramPolls

	case flash.CmdParamErase, flash.CmdSectorErase, flash.CmdBulkErase:
		if !c.wel {
			return
		}
		c.wel = false
		c.errBits = 0
		if c.FailErase {
			c.errBits |= flash.StatusEraseError
			c.busyPolls = c.SectorErasePolls
			return
		}
		var start, size uint32
		switch op {
		case flash.CmdParamErase:
			start, size = flash.ParamSectorBase(address(w)), flash.ParamSectorSize
			c.busyPolls = c.ParamErasePolls
		case flash.CmdSectorErase:
			start, size = flash.SectorBase(address(w)), flash.SectorSize
			c.busyPolls = c.SectorErasePolls
		default:
			start, size = 0, flash.Capacity
			c.busyPolls = c.BulkErasePolls
		}
		for i := start; i < start+size; i++ {
			c.mem[i] = flash.ErasedByte
		}
	}
}
