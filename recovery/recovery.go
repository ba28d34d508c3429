// Package recovery sequences parachute deployment: after a fixed delay the
// drogue charge fires, after a second delay the main. Each event records
// the new flight state and flags and sounds the buzzer.
//
// Everything runs from core timer handlers, so nothing here blocks or
// touches the flash bus; state changes are staged with the persister and
// written by its worker.
package recovery

import (
	"time"

	"avionics/config"
	"avionics/core"
)

// Channel selects a pyro output
type Channel uint8

const (
	Drogue Channel = iota
	Main
	numChannels
)

func (c Channel) String() string {
	switch c {
	case Drogue:
		return "drogue"
	case Main:
		return "main"
	}
	return "unknown"
}

// Pins of one pyro output. Enable arms the MOSFET driver, Activate
// conducts through the igniter.
type Pins struct {
	Enable   core.GPIOPin
	Activate core.GPIOPin
}

// Buzzer is an audible indicator
type Buzzer interface {
	SetTone(on bool)
}

// Recorder accepts staged record changes. *boot.Persister implements it.
type Recorder interface {
	Stage(fn func(*config.Record)) error
}

// Config of the deployment sequence
type Config struct {
	DrogueDelay  time.Duration // from Arm to drogue
	MainDelay    time.Duration // from drogue to main
	FireDuration time.Duration // igniter current on time
	Beep         time.Duration // buzzer on and off period
	DrogueBeeps  int
	MainBeeps    int
	Pins         [numChannels]Pins
}

// DefaultConfig returns the flight timings. Pins are board specific and
// left zero.
func DefaultConfig() Config {
	return Config{
		DrogueDelay:  15 * time.Second,
		MainDelay:    45 * time.Second,
		FireDuration: time.Second,
		Beep:         250 * time.Millisecond,
		DrogueBeeps:  2,
		MainBeeps:    6,
	}
}

func ticks(d time.Duration) uint32 {
	return core.TimerFromUS(uint32(d / time.Microsecond))
}

type channel struct {
	seq     *Sequencer
	id      Channel
	pins    Pins
	fired   bool
	fire    core.Timer
	release core.Timer
}

// Sequencer owns the pyro outputs and the buzzer.
type Sequencer struct {
	cfg    Config
	gpio   core.GPIODriver
	buzzer Buzzer
	rec    Recorder

	channels [numChannels]channel

	beep      core.Timer
	beepsLeft int
	toneOn    bool
	armed     bool
}

// New creates a sequencer. buzzer and rec may be nil.
func New(gpio core.GPIODriver, buzzer Buzzer, rec Recorder, cfg Config) *Sequencer {
	s := &Sequencer{
		cfg:    cfg,
		gpio:   gpio,
		buzzer: buzzer,
		rec:    rec,
	}
	for i := range s.channels {
		ch := &s.channels[i]
		ch.seq = s
		ch.id = Channel(i)
		ch.pins = cfg.Pins[i]
		ch.fire.Handler = ch.fireEvent
		ch.release.Handler = ch.releaseEvent
	}
	s.beep.Handler = s.beepEvent
	return s
}

// Init drives every pyro pin low as an output.
func (s *Sequencer) Init() error {
	for i := range s.channels {
		p := s.channels[i].pins
		for _, pin := range []core.GPIOPin{p.Activate, p.Enable} {
			if err := s.gpio.ConfigureOutput(pin); err != nil {
				return err
			}
			if err := s.gpio.SetPin(pin, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// Arm starts the sequence at time now (timer ticks). Channels already
// recorded as fired in rec, for example before a reset in flight, are not
// fired again; if only the drogue had fired the main is scheduled MainDelay
// from now.
func (s *Sequencer) Arm(now uint32, rec config.Record) {
	if s.armed {
		return
	}
	s.armed = true

	drogue := &s.channels[Drogue]
	main := &s.channels[Main]
	drogue.fired = rec.Flags.PostDrogue()
	main.fired = rec.Flags.PostMain()

	switch {
	case !drogue.fired:
		drogue.fire.WakeTime = now + ticks(s.cfg.DrogueDelay)
		core.ScheduleTimer(&drogue.fire)
	case !main.fired:
		main.fire.WakeTime = now + ticks(s.cfg.MainDelay)
		core.ScheduleTimer(&main.fire)
	}
	core.DebugPrintln("[RECOVERY] armed, flags=" + rec.Flags.String())
}

// Disarm cancels pending events and drives the outputs low.
func (s *Sequencer) Disarm() {
	for i := range s.channels {
		ch := &s.channels[i]
		core.CancelTimer(&ch.fire)
		core.CancelTimer(&ch.release)
		ch.off()
	}
	core.CancelTimer(&s.beep)
	s.setTone(false)
	s.beepsLeft = 0
	s.armed = false
}

// Armed reports whether a sequence is running
func (s *Sequencer) Armed() bool {
	return s.armed
}

// Fired reports whether ch has fired
func (s *Sequencer) Fired(ch Channel) bool {
	return s.channels[ch].fired
}

func (ch *channel) on() {
	g := ch.seq.gpio
	_ = g.SetPin(ch.pins.Enable, true)
	_ = g.SetPin(ch.pins.Activate, true)
}

func (ch *channel) off() {
	g := ch.seq.gpio
	_ = g.SetPin(ch.pins.Activate, false)
	_ = g.SetPin(ch.pins.Enable, false)
}

func (ch *channel) fireEvent(t *core.Timer) uint8 {
	s := ch.seq
	ch.on()
	ch.fired = true
	core.RecordEvent(core.EvtDeploy, uint8(ch.id), t.WakeTime, 0)
	core.DebugAsync("[RECOVERY] " + ch.id.String() + " fired")

	ch.release.WakeTime = t.WakeTime + ticks(s.cfg.FireDuration)
	core.ScheduleTimer(&ch.release)

	var beeps int
	switch ch.id {
	case Drogue:
		beeps = s.cfg.DrogueBeeps
		s.stage(config.StateInFlightPostApogee, config.FlagPostDrogue)
		next := &s.channels[Main]
		if !next.fired {
			next.fire.WakeTime = t.WakeTime + ticks(s.cfg.MainDelay)
			core.ScheduleTimer(&next.fire)
		}
	case Main:
		beeps = s.cfg.MainBeeps
		s.stage(config.StateInFlightPostMain, config.FlagPostMain)
	}
	s.startBeeps(t.WakeTime, beeps)
	return core.SF_DONE
}

func (ch *channel) releaseEvent(*core.Timer) uint8 {
	ch.off()
	return core.SF_DONE
}

// stage records the deployment. The state only moves forward.
func (s *Sequencer) stage(state config.State, flag config.Flags) {
	if s.rec == nil {
		return
	}
	err := s.rec.Stage(func(r *config.Record) {
		if r.State < state {
			r.State = state
		}
		r.Flags = r.Flags.With(config.FlagInFlight | flag).Without(config.FlagPreDrogue)
	})
	if err != nil {
		core.DebugAsync("[RECOVERY] state not staged: " + err.Error())
	}
}

func (s *Sequencer) setTone(on bool) {
	s.toneOn = on
	if s.buzzer != nil {
		s.buzzer.SetTone(on)
	}
}

func (s *Sequencer) startBeeps(now uint32, n int) {
	if n <= 0 {
		return
	}
	if s.beepsLeft > 0 {
		s.beepsLeft += n
		return
	}
	s.beepsLeft = n
	s.beep.WakeTime = now
	core.ScheduleTimer(&s.beep)
}

func (s *Sequencer) beepEvent(t *core.Timer) uint8 {
	t.WakeTime += ticks(s.cfg.Beep)
	if s.toneOn {
		s.setTone(false)
		s.beepsLeft--
		if s.beepsLeft <= 0 {
			return core.SF_DONE
		}
		return core.SF_RESCHEDULE
	}
	s.setTone(true)
	return core.SF_RESCHEDULE
}
