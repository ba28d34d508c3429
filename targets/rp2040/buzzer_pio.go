//go:build rp2040

package main

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// buildToneProgram toggles the SET pin every 32 cycles, so the output
// period is 64 state machine clocks.
func buildToneProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Set(rp2pio.SetDestPins, 1).Delay(31).Encode(), // 0: set pins, 1 [31]
		asm.Set(rp2pio.SetDestPins, 0).Delay(31).Encode(), // 1: set pins, 0 [31]
		// .wrap
	}
}

const (
	toneOrigin    = 0
	toneCycles    = 64
	buzzerToneHz  = 4000
	pioClockHz    = 125000000
	toneDivFrac   = 256
	toneDivScaled = pioClockHz * toneDivFrac / (toneCycles * buzzerToneHz)
)

// PIOBuzzer drives a piezo with a square wave from a PIO state machine.
type PIOBuzzer struct {
	pio *rp2pio.PIO
	sm  rp2pio.StateMachine
	pin machine.Pin
}

// NewPIOBuzzer loads the tone program on PIO0 state machine 0 and leaves
// it stopped.
func NewPIOBuzzer(pin machine.Pin) (*PIOBuzzer, error) {
	b := &PIOBuzzer{pio: rp2pio.PIO0, pin: pin}
	b.sm = b.pio.StateMachine(0)
	b.sm.TryClaim()

	program := buildToneProgram()
	offset, err := b.pio.AddProgram(program, toneOrigin)
	if err != nil {
		return nil, err
	}

	pin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(uint16(toneDivScaled/toneDivFrac), uint8(toneDivScaled%toneDivFrac))

	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(pin, 1, true)
	b.sm.SetPinsConsecutive(pin, 1, false)
	return b, nil
}

// SetTone starts or stops the square wave. The pin idles low.
func (b *PIOBuzzer) SetTone(on bool) {
	if on {
		b.sm.Restart()
		b.sm.SetEnabled(true)
		return
	}
	b.sm.SetEnabled(false)
	b.sm.SetPinsConsecutive(b.pin, 1, false)
}
