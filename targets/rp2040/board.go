//go:build rp2040

package main

import (
	"avionics/core"
	"machine"
)

// Flight computer wiring
const (
	flashBus       core.SPIBusID = 4 // spi0e: SCK=GP2 MOSI=GP3 MISO=GP4
	flashCS                      = core.GPIOPin(machine.GPIO5)
	flashRate                    = 8000000
	baroSDA                      = machine.GPIO6
	baroSCL                      = machine.GPIO7
	dumpButton                   = core.GPIOPin(machine.GPIO14)
	buzzerPin                    = machine.GPIO15
	drogueEnable                 = core.GPIOPin(machine.GPIO16)
	drogueActivate               = core.GPIOPin(machine.GPIO17)
	mainEnable                   = core.GPIOPin(machine.GPIO18)
	mainActivate                 = core.GPIOPin(machine.GPIO19)
	debugTX                      = machine.GPIO0
	debugRX                      = machine.GPIO1
)
