//go:build rp2040

package main

import (
	"avionics/core"
	"errors"
	"machine"
	"sync"
)

var (
	errSPIBus    = errors.New("invalid SPI bus ID")
	errSPIMode   = errors.New("invalid SPI mode")
	errSPIHandle = errors.New("invalid SPI bus handle")
	errSPILength = errors.New("tx and rx buffer lengths must match")
)

// spiBusConfig names the controller and pins behind a bus ID
type spiBusConfig struct {
	spi  *machine.SPI
	sck  machine.Pin
	mosi machine.Pin
	miso machine.Pin
	name string
}

var rp2040SPIBuses = map[core.SPIBusID]spiBusConfig{
	0: {spi: machine.SPI0, sck: machine.GPIO2, mosi: machine.GPIO3, miso: machine.GPIO0, name: "spi0a"},
	1: {spi: machine.SPI0, sck: machine.GPIO6, mosi: machine.GPIO7, miso: machine.GPIO4, name: "spi0b"},
	2: {spi: machine.SPI0, sck: machine.GPIO18, mosi: machine.GPIO19, miso: machine.GPIO16, name: "spi0c"},
	3: {spi: machine.SPI0, sck: machine.GPIO22, mosi: machine.GPIO23, miso: machine.GPIO20, name: "spi0d"},
	4: {spi: machine.SPI0, sck: machine.GPIO2, mosi: machine.GPIO3, miso: machine.GPIO4, name: "spi0e"},

	5: {spi: machine.SPI1, sck: machine.GPIO10, mosi: machine.GPIO11, miso: machine.GPIO8, name: "spi1a"},
	6: {spi: machine.SPI1, sck: machine.GPIO14, mosi: machine.GPIO15, miso: machine.GPIO12, name: "spi1b"},
	7: {spi: machine.SPI1, sck: machine.GPIO26, mosi: machine.GPIO27, miso: machine.GPIO24, name: "spi1c"},
	8: {spi: machine.SPI1, sck: machine.GPIO10, mosi: machine.GPIO11, miso: machine.GPIO12, name: "spi1d"},
}

// RP2040SPIDriver implements core.SPIDriver using TinyGo's machine.SPI
type RP2040SPIDriver struct {
	mu              sync.Mutex
	configuredBuses map[core.SPIBusID]*spiInstance
}

// spiInstance is the bus handle returned by ConfigureBus
type spiInstance struct {
	spi  *machine.SPI
	mode core.SPIMode
	rate uint32
}

// NewRP2040SPIDriver creates a new RP2040 SPI driver
func NewRP2040SPIDriver() *RP2040SPIDriver {
	return &RP2040SPIDriver{
		configuredBuses: make(map[core.SPIBusID]*spiInstance),
	}
}

// ConfigureBus sets up a hardware SPI bus. A bus already running with the
// same mode and rate is shared.
func (d *RP2040SPIDriver) ConfigureBus(config core.SPIConfig) (interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if inst, exists := d.configuredBuses[config.BusID]; exists {
		if inst.mode == config.Mode && inst.rate == config.Rate {
			return inst, nil
		}
	}

	bus, exists := rp2040SPIBuses[config.BusID]
	if !exists {
		return nil, errSPIBus
	}
	if config.Mode > 3 {
		return nil, errSPIMode
	}

	err := bus.spi.Configure(machine.SPIConfig{
		Frequency: config.Rate,
		SCK:       bus.sck,
		SDO:       bus.mosi,
		SDI:       bus.miso,
		Mode:      uint8(config.Mode),
	})
	if err != nil {
		return nil, err
	}

	inst := &spiInstance{spi: bus.spi, mode: config.Mode, rate: config.Rate}
	d.configuredBuses[config.BusID] = inst
	return inst, nil
}

// Transfer performs a full-duplex transfer
func (d *RP2040SPIDriver) Transfer(busHandle interface{}, txData []byte, rxData []byte) error {
	inst, ok := busHandle.(*spiInstance)
	if !ok {
		return errSPIHandle
	}
	if len(txData) != len(rxData) {
		return errSPILength
	}
	return inst.spi.Tx(txData, rxData)
}

// GetBusInfo returns information about available SPI buses
func (d *RP2040SPIDriver) GetBusInfo() map[core.SPIBusID]string {
	info := make(map[core.SPIBusID]string)
	for id, config := range rp2040SPIBuses {
		info[id] = config.name
	}
	return info
}
