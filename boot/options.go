package boot

import (
	"time"

	"avionics/flash"
	"avionics/logscan"
)

// Config controls the boot sequence and the persister it creates.
type Config struct {
	Flash    []flash.Option
	Strategy logscan.Strategy
	Capacity uint32

	// Busy outcomes are retried this many times, Backoff apart
	BusyRetries int
	Backoff     time.Duration

	// Consecutive failed saves before persistence is abandoned
	MaxFailures int

	Sleep func(time.Duration)
}

func defaultConfig() Config {
	return Config{
		Strategy:    logscan.Binary,
		Capacity:    flash.Capacity,
		BusyRetries: 5,
		Backoff:     10 * time.Millisecond,
		MaxFailures: 3,
		Sleep:       time.Sleep,
	}
}

// Option is a functional option for Run.
type Option func(*Config)

// WithFlashOptions passes options through to flash.Initialize.
func WithFlashOptions(opts ...flash.Option) Option {
	return func(c *Config) { c.Flash = append(c.Flash, opts...) }
}

// WithScanStrategy selects how the resume address is searched.
func WithScanStrategy(s logscan.Strategy) Option {
	return func(c *Config) { c.Strategy = s }
}

// WithCapacity sets the end of the data region.
func WithCapacity(capacity uint32) Option {
	return func(c *Config) { c.Capacity = capacity }
}

// WithBusyRetries sets how often busy outcomes are retried.
func WithBusyRetries(n int, backoff time.Duration) Option {
	return func(c *Config) {
		if n >= 0 {
			c.BusyRetries = n
		}
		c.Backoff = backoff
	}
}

// WithMaxFailures sets the consecutive save failures tolerated before the
// persister enters degraded mode.
func WithMaxFailures(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxFailures = n
		}
	}
}

// WithSleep replaces the wait used between retries.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}
