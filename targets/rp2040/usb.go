//go:build rp2040

package main

import (
	"machine"
)

// InitUSB configures the USB CDC serial port used for dumps
func InitUSB() {
	// machine.Serial is USB CDC on the RP2040; descriptors come from the runtime
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbWriter adapts machine.Serial to io.Writer for the dump stream
type usbWriter struct{}

func (usbWriter) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}

// USBAvailable returns the number of bytes available to read from USB
func USBAvailable() int {
	return machine.Serial.Buffered()
}

// USBRead reads a single byte from USB
func USBRead() (byte, error) {
	return machine.Serial.ReadByte()
}
