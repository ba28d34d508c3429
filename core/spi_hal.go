package core

// SPIBusID selects one of the board's SPI bus pin mappings
type SPIBusID uint8

// SPIMode is the clock polarity and phase, 0-3. The flash chip runs in
// mode 0 (idle low, sample on the rising edge).
type SPIMode uint8

// SPIConfig is what a device asks of its bus
type SPIConfig struct {
	BusID SPIBusID
	Mode  SPIMode
	Rate  uint32 // Hz
}

// SPIDriver moves bytes on a hardware SPI controller. Chip select is not
// its concern; SPIDevice frames transfers with a GPIO.
type SPIDriver interface {
	// ConfigureBus returns an opaque handle for Transfer. Configuring a bus
	// that already runs with the same settings returns the existing handle.
	ConfigureBus(config SPIConfig) (interface{}, error)

	// Transfer clocks out txData while filling rxData. Both have the same
	// length.
	Transfer(busHandle interface{}, txData []byte, rxData []byte) error

	// GetBusInfo names the buses this board can configure
	GetBusInfo() map[SPIBusID]string
}

var spiDriver SPIDriver

// SetSPIDriver registers the board's SPI driver
func SetSPIDriver(d SPIDriver) {
	spiDriver = d
}

// MustSPI returns the registered SPI driver. A board that never registered
// one is misconfigured, so this panics.
func MustSPI() SPIDriver {
	if spiDriver == nil {
		panic("SPI driver not configured")
	}
	return spiDriver
}
