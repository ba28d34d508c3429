package config

import "avionics/flash"

// Identity marks a parameter region image as a configuration record
const Identity = 0x5A

// Compiled-in defaults
const (
	DefaultInitialWait = 10000 // ms before the unit starts sampling
	DefaultDataRate    = 50    // Hz
	DefaultFlags       = Flags(0)

	DefaultGroundAltitude = 0      // m
	DefaultGroundPressure = 101325 // Pa
)

// BMI088 accelerometer register values
const (
	AccelBWNormal = 0x0A
	AccelODR100Hz = 0x08
	AccelRange12G = 0x02
	AccelPMActive = 0x00
)

// BMI088 gyroscope register values
const (
	GyroBW23ODR200Hz = 0x04
	GyroRange1000DPS = 0x01
	GyroPMNormal     = 0x00
)

// BMP3 barometer register values
const (
	BaroODR50Hz        = 0x02
	BaroOversampling4X = 0x02
	BaroIIRCoeff15     = 0x04
)

// Defaults returns a record populated from the compiled-in constants. The
// data log bounds are both at the start of the data region: nothing logged.
func Defaults() Record {
	return Record{
		ID:               Identity,
		InitialWait:      DefaultInitialWait,
		DataRate:         DefaultDataRate,
		Flags:            DefaultFlags,
		StartDataAddress: flash.DataRegionStart,
		EndDataAddress:   flash.DataRegionStart,
		Accel: AccelConfig{
			Bandwidth: AccelBWNormal,
			ODR:       AccelODR100Hz,
			Range:     AccelRange12G,
			Power:     AccelPMActive,
		},
		Gyro: GyroConfig{
			Bandwidth: GyroBW23ODR200Hz,
			ODR:       GyroBW23ODR200Hz,
			Range:     GyroRange1000DPS,
			Power:     GyroPMNormal,
		},
		Baro: BaroConfig{
			ODR:                  BaroODR50Hz,
			TempOversampling:     BaroOversampling4X,
			PressureOversampling: BaroOversampling4X,
			IIRFilter:            BaroIIRCoeff15,
		},
		GroundAltitude: DefaultGroundAltitude,
		GroundPressure: DefaultGroundPressure,
		State:          StateGroundIdle,
	}
}
