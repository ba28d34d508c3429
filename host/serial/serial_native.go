//go:build !wasm

package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

var errNoConfig = errors.New("serial: config cannot be nil")

// tarmPort is a Port on github.com/tarm/serial. A read that times out
// returns no data, which the capture loop treats as a wait.
type tarmPort struct {
	*serial.Port
}

// Open opens cfg.Device
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, errNoConfig
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return tarmPort{p}, nil
}
