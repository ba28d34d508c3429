//go:build rp2040

package main

import (
	"avionics/core"
	"machine"
)

var debugUART *machine.UART

// InitDebugUART routes core debug output to UART0 at 115200 baud.
// USB stays free for the dump stream.
func InitDebugUART() {
	debugUART = machine.UART0
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       debugTX,
		RX:       debugRX,
	})
	if err != nil {
		return
	}

	core.SetDebugWriter(func(s string) {
		debugUART.Write([]byte(s))
		debugUART.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
	// Timer handlers log through DebugAsync and must not wait on the UART
	core.InitAsyncDebug()
	core.DebugPrintln("=== avionics debug UART ===")
}
