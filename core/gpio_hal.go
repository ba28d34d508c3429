package core

// GPIOPin is a GPIO number on the board
type GPIOPin uint32

// GPIODriver drives the board's digital pins: flash chip select, pyro
// enable and activate lines, and the dump button.
type GPIODriver interface {
	// Configuring a pin twice is not an error
	ConfigureOutput(pin GPIOPin) error
	ConfigureInputPullUp(pin GPIOPin) error
	ConfigureInputPullDown(pin GPIOPin) error

	SetPin(pin GPIOPin, value bool) error
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin is GetPin with errors reading low
	ReadPin(pin GPIOPin) bool
}

var gpioDriver GPIODriver

// SetGPIODriver registers the board's GPIO driver
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// GetGPIODriver returns the registered driver or nil
func GetGPIODriver() GPIODriver {
	return gpioDriver
}

// MustGPIO returns the registered driver and panics if there is none
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
