//go:build rp2040

package main

import (
	"avionics/config"
	"errors"
	"machine"

	"tinygo.org/x/drivers/bmp388"
)

var errBaroMissing = errors.New("barometer not responding")

// configureBaro applies the stored barometer settings. The record holds
// register encodings, which the bmp388 driver types share.
func configureBaro(cfg config.BaroConfig) (*bmp388.Device, error) {
	bus := machine.I2C1
	err := bus.Configure(machine.I2CConfig{
		Frequency: 400000,
		SDA:       baroSDA,
		SCL:       baroSCL,
	})
	if err != nil {
		return nil, err
	}

	baro := bmp388.New(bus)
	if !baro.Connected() {
		return nil, errBaroMissing
	}
	err = baro.Configure(bmp388.Config{
		Pressure:    bmp388.Oversampling(cfg.PressureOversampling),
		Temperature: bmp388.Oversampling(cfg.TempOversampling),
		ODR:         bmp388.OutputDataRate(cfg.ODR),
		IIR:         bmp388.FilterCoefficient(cfg.IIRFilter),
		Mode:        bmp388.Normal,
	})
	if err != nil {
		return nil, err
	}
	return &baro, nil
}
