package flash

import "time"

// Config holds the polling budget of a Device.
type Config struct {
	// PollInterval is the pause between status reads while a program or
	// erase runs. The bus lock stays held; Sleep yields the processor.
	PollInterval time.Duration

	ProgramTimeout     time.Duration
	ParamEraseTimeout  time.Duration
	SectorEraseTimeout time.Duration
	DeviceEraseTimeout time.Duration

	// ExpectedID is compared against the chip identity at Initialize
	ExpectedID ID

	// Sleep yields between polls; Now measures the deadline
	Sleep func(time.Duration)
	Now   func() time.Time
}

func defaultConfig() Config {
	return Config{
		PollInterval:       time.Millisecond,
		ProgramTimeout:     5 * time.Millisecond,
		ParamEraseTimeout:  400 * time.Millisecond,
		SectorEraseTimeout: 2 * time.Second,
		DeviceEraseTimeout: 128 * time.Second,
		ExpectedID:         ExpectedID,
		Sleep:              time.Sleep,
		Now:                time.Now,
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithPollInterval sets the pause between status reads.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PollInterval = d
		}
	}
}

// WithProgramTimeout bounds a page program.
func WithProgramTimeout(d time.Duration) Option {
	return func(c *Config) { c.ProgramTimeout = d }
}

// WithParamEraseTimeout bounds a 4 KiB parameter sector erase.
func WithParamEraseTimeout(d time.Duration) Option {
	return func(c *Config) { c.ParamEraseTimeout = d }
}

// WithSectorEraseTimeout bounds a 64 KiB sector erase.
func WithSectorEraseTimeout(d time.Duration) Option {
	return func(c *Config) { c.SectorEraseTimeout = d }
}

// WithDeviceEraseTimeout bounds a bulk erase.
func WithDeviceEraseTimeout(d time.Duration) Option {
	return func(c *Config) { c.DeviceEraseTimeout = d }
}

// WithExpectedID accepts a different flash part.
func WithExpectedID(id ID) Option {
	return func(c *Config) { c.ExpectedID = id }
}

// WithClock replaces the sleep and time source used by the poll loop.
//
// Example:
//
//	dev, err := flash.Initialize(bus, flash.WithClock(clk.Sleep, clk.Now))
func WithClock(sleep func(time.Duration), now func() time.Time) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
		if now != nil {
			c.Now = now
		}
	}
}
