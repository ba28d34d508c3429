package config

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrShortRecord    = errors.New("config: record image too short")
	ErrInvalidRecord  = errors.New("config: identity byte mismatch")
	ErrInvalidState   = errors.New("config: undefined flight state")
	ErrUndefinedFlags = errors.New("config: undefined flag bits")
	ErrBounds         = errors.New("config: end data address before start")
)

// AccelConfig holds the accelerometer register values.
type AccelConfig struct {
	Bandwidth uint8 `yaml:"bandwidth"`
	ODR       uint8 `yaml:"odr"`
	Range     uint8 `yaml:"range"`
	Power     uint8 `yaml:"power"`
}

// GyroConfig holds the gyroscope register values.
type GyroConfig struct {
	Bandwidth uint8 `yaml:"bandwidth"`
	ODR       uint8 `yaml:"odr"`
	Range     uint8 `yaml:"range"`
	Power     uint8 `yaml:"power"`
}

// BaroConfig holds the barometer register values.
type BaroConfig struct {
	ODR                  uint8 `yaml:"odr"`
	TempOversampling     uint8 `yaml:"temp_oversampling"`
	PressureOversampling uint8 `yaml:"pressure_oversampling"`
	IIRFilter            uint8 `yaml:"iir_filter"`
}

// Record is the configuration and flight state kept in the parameter
// region. Its flash image is RecordSize bytes, little-endian, in field
// order:
//
//	off size field
//	  0    1 ID
//	  1    4 InitialWait (ms)
//	  5    1 DataRate (Hz)
//	  6    1 Flags
//	  7    4 StartDataAddress
//	 11    4 EndDataAddress
//	 15    4 Accel bandwidth, odr, range, power
//	 19    4 Gyro bandwidth, odr, range, power
//	 23    4 Baro odr, temp oversampling, pressure oversampling, iir
//	 27    4 GroundAltitude (float32)
//	 31    4 GroundPressure (float32)
//	 35    1 State
type Record struct {
	ID               uint8       `yaml:"id"`
	InitialWait      uint32      `yaml:"initial_wait_ms"`
	DataRate         uint8       `yaml:"data_rate"`
	Flags            Flags       `yaml:"flags"`
	StartDataAddress uint32      `yaml:"start_data_address"`
	EndDataAddress   uint32      `yaml:"end_data_address"`
	Accel            AccelConfig `yaml:"accel"`
	Gyro             GyroConfig  `yaml:"gyro"`
	Baro             BaroConfig  `yaml:"baro"`
	GroundAltitude   float32     `yaml:"ground_altitude"`
	GroundPressure   float32     `yaml:"ground_pressure"`
	State            State       `yaml:"state"`
}

// RecordSize is the length of the flash image
const RecordSize = 36

const (
	offID          = 0
	offInitialWait = 1
	offDataRate    = 5
	offFlags       = 6
	offStart       = 7
	offEnd         = 11
	offAccel       = 15
	offGyro        = 19
	offBaro        = 23
	offAltitude    = 27
	offPressure    = 31
	offState       = 35
)

// Encode writes the image of r into b, which must hold RecordSize bytes.
func (r *Record) Encode(b []byte) error {
	if len(b) < RecordSize {
		return ErrShortRecord
	}
	le := binary.LittleEndian

	b[offID] = r.ID
	le.PutUint32(b[offInitialWait:], r.InitialWait)
	b[offDataRate] = r.DataRate
	b[offFlags] = byte(r.Flags)
	le.PutUint32(b[offStart:], r.StartDataAddress)
	le.PutUint32(b[offEnd:], r.EndDataAddress)

	b[offAccel+0] = r.Accel.Bandwidth
	b[offAccel+1] = r.Accel.ODR
	b[offAccel+2] = r.Accel.Range
	b[offAccel+3] = r.Accel.Power

	b[offGyro+0] = r.Gyro.Bandwidth
	b[offGyro+1] = r.Gyro.ODR
	b[offGyro+2] = r.Gyro.Range
	b[offGyro+3] = r.Gyro.Power

	b[offBaro+0] = r.Baro.ODR
	b[offBaro+1] = r.Baro.TempOversampling
	b[offBaro+2] = r.Baro.PressureOversampling
	b[offBaro+3] = r.Baro.IIRFilter

	le.PutUint32(b[offAltitude:], math.Float32bits(r.GroundAltitude))
	le.PutUint32(b[offPressure:], math.Float32bits(r.GroundPressure))
	b[offState] = byte(r.State)
	return nil
}

// Decode fills r from an image. It does not validate the contents.
func (r *Record) Decode(b []byte) error {
	if len(b) < RecordSize {
		return ErrShortRecord
	}
	le := binary.LittleEndian

	r.ID = b[offID]
	r.InitialWait = le.Uint32(b[offInitialWait:])
	r.DataRate = b[offDataRate]
	r.Flags = Flags(b[offFlags])
	r.StartDataAddress = le.Uint32(b[offStart:])
	r.EndDataAddress = le.Uint32(b[offEnd:])

	r.Accel = AccelConfig{b[offAccel], b[offAccel+1], b[offAccel+2], b[offAccel+3]}
	r.Gyro = GyroConfig{b[offGyro], b[offGyro+1], b[offGyro+2], b[offGyro+3]}
	r.Baro = BaroConfig{b[offBaro], b[offBaro+1], b[offBaro+2], b[offBaro+3]}

	r.GroundAltitude = math.Float32frombits(le.Uint32(b[offAltitude:]))
	r.GroundPressure = math.Float32frombits(le.Uint32(b[offPressure:]))
	r.State = State(b[offState])
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (r *Record) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordSize)
	if err := r.Encode(b); err != nil {
		return nil, err
	}
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (r *Record) UnmarshalBinary(b []byte) error {
	return r.Decode(b)
}

// Identified reports whether the identity byte matches. This is the only
// check applied to an image read back from flash.
func (r *Record) Identified() bool {
	return r.ID == Identity
}

// Validate checks the invariants a record must satisfy before it is saved.
func (r *Record) Validate() error {
	if !r.Identified() {
		return ErrInvalidRecord
	}
	if r.EndDataAddress < r.StartDataAddress {
		return ErrBounds
	}
	if !r.State.Valid() {
		return ErrInvalidState
	}
	if r.Flags&^allFlags != 0 {
		return ErrUndefinedFlags
	}
	return nil
}
