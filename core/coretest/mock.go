// Package coretest provides in-memory HAL drivers for tests.
package coretest

import (
	"errors"
	"sync"

	"avionics/core"
)

// ErrNotConfigured is returned for pins used before configuration
var ErrNotConfigured = errors.New("coretest: pin not configured")

// PinMode records how a pin was configured
type PinMode uint8

const (
	ModeUnset PinMode = iota
	ModeOutput
	ModeInputPullUp
	ModeInputPullDown
)

// PinWrite is one SetPin call
type PinWrite struct {
	Pin   core.GPIOPin
	Value bool
}

// MockGPIODriver keeps pin levels in a map.
type MockGPIODriver struct {
	mu     sync.Mutex
	pins   map[core.GPIOPin]bool
	modes  map[core.GPIOPin]PinMode
	writes []PinWrite
}

var _ core.GPIODriver = (*MockGPIODriver)(nil)

func NewMockGPIODriver() *MockGPIODriver {
	return &MockGPIODriver{
		pins:  make(map[core.GPIOPin]bool),
		modes: make(map[core.GPIOPin]PinMode),
	}
}

func (m *MockGPIODriver) configure(pin core.GPIOPin, mode PinMode, level bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[pin] = mode
	m.pins[pin] = level
	return nil
}

func (m *MockGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return m.configure(pin, ModeOutput, false)
}

func (m *MockGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return m.configure(pin, ModeInputPullUp, true)
}

func (m *MockGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return m.configure(pin, ModeInputPullDown, false)
}

func (m *MockGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] != ModeOutput {
		return ErrNotConfigured
	}
	m.pins[pin] = value
	m.writes = append(m.writes, PinWrite{pin, value})
	return nil
}

func (m *MockGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes[pin] == ModeUnset {
		return false, ErrNotConfigured
	}
	return m.pins[pin], nil
}

func (m *MockGPIODriver) ReadPin(pin core.GPIOPin) bool {
	v, _ := m.GetPin(pin)
	return v
}

// Drive sets an input level from the outside, like a button press
func (m *MockGPIODriver) Drive(pin core.GPIOPin, value bool) {
	m.mu.Lock()
	m.pins[pin] = value
	m.mu.Unlock()
}

// Mode returns how pin was configured
func (m *MockGPIODriver) Mode(pin core.GPIOPin) PinMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modes[pin]
}

// Writes returns every SetPin call so far
func (m *MockGPIODriver) Writes() []PinWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PinWrite, len(m.writes))
	copy(out, m.writes)
	return out
}

// MockSPIDriver records transfers and answers from a callback.
type MockSPIDriver struct {
	mu      sync.Mutex
	buses   map[core.SPIBusID]core.SPIConfig
	frames  [][]byte
	Respond func(tx []byte) []byte
	Err     error
}

var _ core.SPIDriver = (*MockSPIDriver)(nil)

func NewMockSPIDriver() *MockSPIDriver {
	return &MockSPIDriver{buses: make(map[core.SPIBusID]core.SPIConfig)}
}

func (m *MockSPIDriver) ConfigureBus(cfg core.SPIConfig) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.buses[cfg.BusID] = cfg
	return cfg, nil
}

func (m *MockSPIDriver) Transfer(handle interface{}, tx, rx []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	frame := make([]byte, len(tx))
	copy(frame, tx)
	m.frames = append(m.frames, frame)
	if m.Respond != nil {
		copy(rx, m.Respond(frame))
	}
	return nil
}

func (m *MockSPIDriver) GetBusInfo() map[core.SPIBusID]string {
	return map[core.SPIBusID]string{0: "mock0", 1: "mock1"}
}

// Bus returns the configuration of a configured bus
func (m *MockSPIDriver) Bus(id core.SPIBusID) (core.SPIConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.buses[id]
	return cfg, ok
}

// Frames returns the bytes sent in each transfer
func (m *MockSPIDriver) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}
