//go:build rp2040

package main

import (
	"avionics/core"
	"runtime/volatile"
	"unsafe"
)

// The RP2040 timer counts microseconds, matching core.TimerFreq. Only the
// low word is read; core time is 32 bits and wraps.
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var (
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock syncs the core timer with the 1MHz hardware counter
func InitClock() {
	UpdateSystemTime()
	core.TimerInit()
}

// GetHardwareTime returns the low 32 bits of the microsecond counter
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime updates the core timer with hardware time
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}
