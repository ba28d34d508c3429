//go:build rp2040

package main

import (
	"avionics/boot"
	"avionics/core"
	"avionics/dump"
	"avionics/flash"
	"avionics/recovery"
	"context"
	"machine"
	"time"
)

func main() {
	// Clear any watchdog state left over from the previous run
	_ = machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})

	InitUSB()
	InitDebugUART()
	InitClock()

	gpio := NewRPGPIODriver()
	core.SetGPIODriver(gpio)
	core.SetSPIDriver(NewRP2040SPIDriver())

	// Igniter lines stay low through boot, dump mode and faults
	for _, pin := range []core.GPIOPin{drogueActivate, drogueEnable, mainActivate, mainEnable} {
		_ = gpio.SetPin(pin, false)
	}

	bus, err := core.NewSPIDevice(core.SPIDeviceConfig{
		Bus:   core.SPIConfig{BusID: flashBus, Mode: 0, Rate: flashRate},
		CSPin: flashCS,
		HasCS: true,
	})
	if err != nil {
		core.DebugPrintln("[MAIN] flash bus: " + err.Error())
		faultLoop()
	}

	sys, err := boot.Run(bus)
	if err != nil {
		core.DebugPrintln("[MAIN] " + err.Error())
		core.DumpEventRing()
		faultLoop()
	}

	// Button pulls low when held
	_ = gpio.ConfigureInputPullUp(dumpButton)
	if !gpio.ReadPin(dumpButton) {
		runDump(sys.Flash)
	}

	if _, err := configureBaro(sys.Record.Baro); err != nil {
		core.DebugPrintln("[MAIN] baro: " + err.Error())
	}

	cfg := recovery.DefaultConfig()
	cfg.Pins[recovery.Drogue] = recovery.Pins{Enable: drogueEnable, Activate: drogueActivate}
	cfg.Pins[recovery.Main] = recovery.Pins{Enable: mainEnable, Activate: mainActivate}

	var seq *recovery.Sequencer
	if buzzer, err := NewPIOBuzzer(buzzerPin); err == nil {
		seq = recovery.New(gpio, buzzer, sys.Persister, cfg)
	} else {
		core.DebugPrintln("[MAIN] buzzer: " + err.Error())
		seq = recovery.New(gpio, nil, sys.Persister, cfg)
	}
	if err := seq.Init(); err != nil {
		core.DebugPrintln("[MAIN] pyro pins: " + err.Error())
		faultLoop()
	}

	go func() {
		_ = sys.Persister.Run(context.Background())
	}()

	UpdateSystemTime()
	seq.Arm(core.GetTime(), sys.Persister.Record())
	core.DebugPrintln("[MAIN] armed " + core.Utoa(uint32(core.GetUptime()/1000)) + " ms after boot")

	for {
		UpdateSystemTime()
		core.ProcessTimers()
		// Yield to the persister goroutine
		time.Sleep(10 * time.Microsecond)
	}
}

// runDump waits for the ground station to send a byte, streams the whole
// chip over USB and then idles. The unit is never armed in this mode.
func runDump(dev *flash.Device) {
	core.DebugPrintln("[MAIN] dump mode")
	for USBAvailable() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	for USBAvailable() > 0 {
		_, _ = USBRead()
	}

	w := dump.NewWriter(usbWriter{})
	w.SkipErased = true
	if err := w.WriteRegion(dev, 0, flash.Capacity); err != nil {
		core.DebugPrintln("[MAIN] dump: " + err.Error())
		faultLoop()
	}
	core.DebugPrintln("[MAIN] dump complete")
	for {
		time.Sleep(time.Second)
	}
}

// faultLoop blinks the LED fast forever. The unit must not be flown.
func faultLoop() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
