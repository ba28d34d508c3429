package flash_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"avionics/flash"
	"avionics/flash/flashsim"
)

// fakeClock advances only when the poll loop sleeps
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newDevice(t *testing.T, opts ...flash.Option) (*flash.Device, *flashsim.Chip) {
	t.Helper()
	chip := flashsim.New()
	clk := &fakeClock{now: time.Unix(0, 0)}
	opts = append([]flash.Option{flash.WithClock(clk.Sleep, clk.Now)}, opts...)
	dev, err := flash.Initialize(chip, opts...)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return dev, chip
}

func TestInitializeIdentity(t *testing.T) {
	dev, _ := newDevice(t)
	if dev.ID() != flash.ExpectedID {
		t.Errorf("Expected ID %v, got %v", flash.ExpectedID, dev.ID())
	}
}

func TestInitializeIdentityMismatch(t *testing.T) {
	chip := flashsim.New()
	chip.SetID(flash.ID{Manufacturer: 0xEF, DeviceMSB: 0x40, DeviceLSB: 0x18})

	dev, err := flash.Initialize(chip)
	if dev != nil {
		t.Error("Expected no device on identity mismatch")
	}

	var mismatch *flash.IdentityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected IdentityMismatchError, got %v", err)
	}
	if mismatch.Actual.Manufacturer != 0xEF {
		t.Errorf("Expected actual manufacturer 0xEF, got 0x%02X", mismatch.Actual.Manufacturer)
	}
}

func TestInitializeBusError(t *testing.T) {
	chip := flashsim.New()
	chip.TxErr = errors.New("spi fault")

	if _, err := flash.Initialize(chip); err == nil {
		t.Error("Expected error when the bus fails")
	}
}

func TestStatusAccessors(t *testing.T) {
	testCases := []struct {
		status   flash.Status
		wip      bool
		wel      bool
		eraseE   bool
		programE bool
	}{
		{0x00, false, false, false, false},
		{0x01, true, false, false, false},
		{0x02, false, true, false, false},
		{0x20, false, false, true, false},
		{0x40, false, false, false, true},
		{0x63, true, true, true, true},
	}

	for _, tc := range testCases {
		if tc.status.WriteInProgress() != tc.wip ||
			tc.status.WriteEnabled() != tc.wel ||
			tc.status.EraseError() != tc.eraseE ||
			tc.status.ProgramError() != tc.programE {
			t.Errorf("Status 0x%02X decoded as %s", uint8(tc.status), tc.status)
		}
	}
}

func TestProgramAndRead(t *testing.T) {
	dev, _ := newDevice(t)

	data := []byte("flight log record")
	if err := dev.ProgramPage(0x2000, data); err != nil {
		t.Fatalf("ProgramPage failed: %v", err)
	}

	buf := make([]byte, len(data))
	if err := dev.ReadPage(0x2000, buf); err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Errorf("Expected %q, got %q", data, buf)
	}
	if dev.LastStatus().WriteInProgress() {
		t.Error("Expected idle status after read")
	}
}

func TestProgramIssuesWriteEnableFirst(t *testing.T) {
	dev, chip := newDevice(t)
	chip.ResetOps()

	if err := dev.ProgramPage(0x1000, []byte{0x12}); err != nil {
		t.Fatalf("ProgramPage failed: %v", err)
	}

	ops := chip.Ops()
	want := []byte{flash.CmdWriteEnable, flash.CmdPageProgram}
	if !bytes.Equal(ops, want) {
		t.Errorf("Expected opcodes %X, got %X", want, ops)
	}
}

func TestProgramPageWrapsWithinPage(t *testing.T) {
	dev, chip := newDevice(t)

	// 16 bytes starting 8 bytes before the page end: the last 8 land at
	// the start of the same page, not in the next one.
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(0xA0 + i)
	}
	const page = 0x3000
	if err := dev.ProgramPage(page+flash.PageSize-8, data); err != nil {
		t.Fatalf("ProgramPage failed: %v", err)
	}

	tail := chip.Peek(page+flash.PageSize-8, 8)
	if !bytes.Equal(tail, data[:8]) {
		t.Errorf("Expected page tail %X, got %X", data[:8], tail)
	}
	head := chip.Peek(page, 8)
	if !bytes.Equal(head, data[8:]) {
		t.Errorf("Expected wrapped bytes %X at page start, got %X", data[8:], head)
	}
	next := chip.Peek(page+flash.PageSize, 8)
	for i, b := range next {
		if b != flash.ErasedByte {
			t.Fatalf("Next page byte %d was written: 0x%02X", i, b)
		}
	}
}

func TestProgramOnlyClearsBits(t *testing.T) {
	dev, chip := newDevice(t)

	if err := dev.ProgramPage(0x4000, []byte{0xF0}); err != nil {
		t.Fatal(err)
	}
	if err := dev.ProgramPage(0x4000, []byte{0x0F}); err != nil {
		t.Fatal(err)
	}
	if got := chip.Peek(0x4000, 1)[0]; got != 0x00 {
		t.Errorf("Expected 0x00 after overlapping programs, got 0x%02X", got)
	}
}

func TestProgramPageTooLong(t *testing.T) {
	dev, chip := newDevice(t)
	chip.ResetOps()

	err := dev.ProgramPage(0x1000, make([]byte, flash.PageSize+1))
	if !errors.Is(err, flash.ErrPageOverflow) {
		t.Errorf("Expected ErrPageOverflow, got %v", err)
	}
	if len(chip.Ops()) != 0 {
		t.Errorf("Expected no commands, got %X", chip.Ops())
	}
}

func TestAddressRange(t *testing.T) {
	dev, _ := newDevice(t)

	if err := dev.ProgramPage(flash.Capacity, []byte{1}); !errors.Is(err, flash.ErrAddressRange) {
		t.Errorf("ProgramPage: expected ErrAddressRange, got %v", err)
	}
	if err := dev.ReadPage(flash.Capacity-4, make([]byte, 8)); !errors.Is(err, flash.ErrAddressRange) {
		t.Errorf("ReadPage: expected ErrAddressRange, got %v", err)
	}
	if err := dev.EraseSector(flash.Capacity); !errors.Is(err, flash.ErrAddressRange) {
		t.Errorf("EraseSector: expected ErrAddressRange, got %v", err)
	}
}

func TestBusyReturnsWithoutSideEffects(t *testing.T) {
	dev, chip := newDevice(t)
	if err := dev.ProgramPage(0x5000, []byte{0x11, 0x22}); err != nil {
		t.Fatal(err)
	}
	before := chip.Peek(0x5000, flash.PageSize)

	operations := map[string]func() error{
		"program":      func() error { return dev.ProgramPage(0x5000, []byte{0x00, 0x00}) },
		"read":         func() error { return dev.ReadPage(0x5000, make([]byte, 4)) },
		"erase_sector": func() error { return dev.EraseSector(0x10000) },
		"erase_param":  func() error { return dev.EraseParamSector(0x5000) },
		"erase_device": func() error { return dev.EraseDevice() },
	}

	for name, op := range operations {
		chip.SetBusy(10)
		chip.ResetOps()

		err := op()
		if !errors.Is(err, flash.ErrBusy) {
			t.Errorf("%s: expected ErrBusy, got %v", name, err)
		}
		if !flash.IsBusy(err) {
			t.Errorf("%s: IsBusy returned false", name)
		}
		if len(chip.Ops()) != 0 {
			t.Errorf("%s: expected no commands while busy, got %X", name, chip.Ops())
		}
		if !bytes.Equal(chip.Peek(0x5000, flash.PageSize), before) {
			t.Errorf("%s: flash contents changed while busy", name)
		}
	}
	chip.SetBusy(0)
}

func TestEraseSector(t *testing.T) {
	dev, chip := newDevice(t)

	const sector = 0x30000
	for addr := uint32(sector); addr < sector+flash.SectorSize; addr += 0x4000 {
		if err := dev.ProgramPage(addr, []byte{0, 0, 0, 0}); err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.ProgramPage(sector+flash.SectorSize, []byte{0x55}); err != nil {
		t.Fatal(err)
	}

	if err := dev.EraseSector(sector + 0x1234); err != nil {
		t.Fatalf("EraseSector failed: %v", err)
	}

	buf := make([]byte, flash.SectorSize)
	if err := dev.ReadPage(sector, buf); err != nil {
		t.Fatal(err)
	}
	for i, b := range buf {
		if b != flash.ErasedByte {
			t.Fatalf("Byte 0x%X not erased: 0x%02X", sector+i, b)
		}
	}
	if got := chip.Peek(sector+flash.SectorSize, 1)[0]; got != 0x55 {
		t.Errorf("Erase leaked into next sector: 0x%02X", got)
	}
}

func TestEraseSectorRefusesParameterSector(t *testing.T) {
	dev, _ := newDevice(t)

	if err := dev.EraseSector(0x8000); !errors.Is(err, flash.ErrProtectedSector) {
		t.Errorf("Expected ErrProtectedSector, got %v", err)
	}
}

func TestEraseParamSector(t *testing.T) {
	dev, chip := newDevice(t)

	if err := dev.ProgramPage(0x0000, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := dev.ProgramPage(0x1000, []byte{4, 5, 6}); err != nil {
		t.Fatal(err)
	}

	if err := dev.EraseParamSector(0x0010); err != nil {
		t.Fatalf("EraseParamSector failed: %v", err)
	}
	if got := chip.Peek(0, 3); !bytes.Equal(got, []byte{0xFF, 0xFF, 0xFF}) {
		t.Errorf("Expected erased parameter sector, got %X", got)
	}
	if got := chip.Peek(0x1000, 3); !bytes.Equal(got, []byte{4, 5, 6}) {
		t.Errorf("Neighbouring sector changed: %X", got)
	}

	if err := dev.EraseParamSector(flash.ParamSectorAreaEnd); !errors.Is(err, flash.ErrNotParamSector) {
		t.Errorf("Expected ErrNotParamSector, got %v", err)
	}
}

func TestEraseDevice(t *testing.T) {
	dev, chip := newDevice(t)

	if err := dev.ProgramPage(0x7FFF00, []byte{0}); err != nil {
		t.Fatal(err)
	}
	if err := dev.EraseDevice(); err != nil {
		t.Fatalf("EraseDevice failed: %v", err)
	}
	if got := chip.Peek(0x7FFF00, 1)[0]; got != flash.ErasedByte {
		t.Errorf("Expected erased byte, got 0x%02X", got)
	}
}

func TestProgramTimeout(t *testing.T) {
	dev, chip := newDevice(t,
		flash.WithPollInterval(time.Millisecond),
		flash.WithProgramTimeout(5*time.Millisecond),
	)
	chip.ProgramPolls = 1000

	err := dev.ProgramPage(0x6000, []byte{0x42})
	if !errors.Is(err, flash.ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if !dev.LastStatus().WriteInProgress() {
		t.Error("Expected last status to show write in progress")
	}

	// The chip keeps working; the next caller sees it busy
	if err := dev.ReadPage(0x6000, make([]byte, 1)); !errors.Is(err, flash.ErrBusy) {
		t.Errorf("Expected ErrBusy after timeout, got %v", err)
	}
}

func TestEraseTimeout(t *testing.T) {
	dev, chip := newDevice(t, flash.WithSectorEraseTimeout(3*time.Millisecond))
	chip.SectorErasePolls = 1000

	if err := dev.EraseSector(0x20000); !errors.Is(err, flash.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestStatusErrorBits(t *testing.T) {
	dev, chip := newDevice(t)

	chip.FailProgram = true
	if err := dev.ProgramPage(0x1000, []byte{0}); !errors.Is(err, flash.ErrProgramFailed) {
		t.Errorf("Expected ErrProgramFailed, got %v", err)
	}
	chip.FailProgram = false

	chip.FailErase = true
	if err := dev.EraseParamSector(0x1000); !errors.Is(err, flash.ErrEraseFailed) {
		t.Errorf("Expected ErrEraseFailed, got %v", err)
	}
	chip.FailErase = false

	if err := dev.ProgramPage(0x1100, []byte{0}); err != nil {
		t.Errorf("Expected error bits to clear on next operation, got %v", err)
	}
}

func TestExclusiveSessionExpires(t *testing.T) {
	dev, _ := newDevice(t)

	var leaked *flash.Session
	if err := dev.Exclusive(func(s *flash.Session) error {
		leaked = s
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := leaked.ReadStatus(); !errors.Is(err, flash.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", err)
	}
}

func TestConcurrentProgramsDoNotInterleave(t *testing.T) {
	dev, chip := newDevice(t)

	var wg sync.WaitGroup
	for task := 0; task < 8; task++ {
		wg.Add(1)
		go func(task int) {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				addr := uint32(0x40000 + task*0x1000 + i*flash.PageSize)
				for {
					err := dev.ProgramPage(addr, []byte{byte(task), byte(i)})
					if err == nil {
						break
					}
					if !flash.IsBusy(err) {
						t.Errorf("task %d: %v", task, err)
						return
					}
				}
			}
		}(task)
	}
	wg.Wait()

	for task := 0; task < 8; task++ {
		for i := 0; i < 16; i++ {
			addr := uint32(0x40000 + task*0x1000 + i*flash.PageSize)
			got := chip.Peek(addr, 2)
			if got[0] != byte(task) || got[1] != byte(i) {
				t.Errorf("Page 0x%X: expected [%d %d], got %v", addr, task, i, got)
			}
		}
	}
}
