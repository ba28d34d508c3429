// SPI device support
// Chip-select managed devices on top of the registered SPIDriver
package core

import (
	"errors"

	"tinygo.org/x/drivers"
)

// SPI device flags
const (
	SF_CS_ACTIVE_HIGH = 0x02 // Chip select active high (default is active low)
	SF_HAVE_PIN       = 0x04 // Has chip select pin
)

var (
	ErrSPINotConfigured = errors.New("SPI device bus not configured")
	ErrSPIBusUnknown    = errors.New("SPI bus not available on this board")
)

// SPIDeviceConfig describes one chip on an SPI bus
type SPIDeviceConfig struct {
	Bus          SPIConfig
	CSPin        GPIOPin
	HasCS        bool
	CSActiveHigh bool
}

// SPIDevice represents a configured SPI device
type SPIDevice struct {
	Flags uint8   // Device flags (CS polarity, CS present)
	Pin   GPIOPin // Chip select pin (if SF_HAVE_PIN is set)

	BusHandle interface{} // Opaque handle from ConfigureBus
	BusID     SPIBusID
	Mode      SPIMode
	Rate      uint32

	spi  SPIDriver
	gpio GPIODriver
}

var _ drivers.SPI = (*SPIDevice)(nil)

// NewSPIDevice configures the chip select pin (deasserted) and the bus
// using the registered drivers.
func NewSPIDevice(cfg SPIDeviceConfig) (*SPIDevice, error) {
	dev := &SPIDevice{
		Pin:   cfg.CSPin,
		BusID: cfg.Bus.BusID,
		Mode:  cfg.Bus.Mode,
		Rate:  cfg.Bus.Rate,
		spi:   MustSPI(),
	}
	if _, ok := dev.spi.GetBusInfo()[cfg.Bus.BusID]; !ok {
		return nil, ErrSPIBusUnknown
	}

	if cfg.HasCS {
		dev.Flags |= SF_HAVE_PIN
		if cfg.CSActiveHigh {
			dev.Flags |= SF_CS_ACTIVE_HIGH
		}
		dev.gpio = MustGPIO()
		if err := dev.gpio.ConfigureOutput(dev.Pin); err != nil {
			return nil, err
		}
		if err := dev.setCS(false); err != nil {
			return nil, err
		}
	}

	handle, err := dev.spi.ConfigureBus(cfg.Bus)
	if err != nil {
		return nil, err
	}
	dev.BusHandle = handle

	return dev, nil
}

// setCS drives the chip select line to its asserted or released level
func (dev *SPIDevice) setCS(asserted bool) error {
	if dev.Flags&SF_HAVE_PIN == 0 {
		return nil
	}
	level := asserted
	if dev.Flags&SF_CS_ACTIVE_HIGH == 0 {
		level = !asserted
	}
	return dev.gpio.SetPin(dev.Pin, level)
}

// Tx performs one chip-select framed transfer. Either buffer may be nil.
// Chip select is released even when the transfer fails.
func (dev *SPIDevice) Tx(w, r []byte) error {
	if dev.BusHandle == nil {
		return ErrSPINotConfigured
	}

	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	tx := w
	if len(tx) != n {
		tx = make([]byte, n)
		copy(tx, w)
	}
	rx := r
	if len(rx) != n {
		rx = make([]byte, n)
	}

	if err := dev.setCS(true); err != nil {
		return err
	}
	err := dev.spi.Transfer(dev.BusHandle, tx, rx)
	if csErr := dev.setCS(false); csErr != nil && err == nil {
		err = csErr
	}

	if len(r) > 0 && len(r) != n {
		copy(r, rx)
	}
	return err
}

// Transfer sends and receives a single byte
func (dev *SPIDevice) Transfer(b byte) (byte, error) {
	buf := []byte{b}
	if err := dev.Tx(buf, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}
