package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"avionics/config"
	"avionics/core"
	"avionics/core/coretest"
)

var testPins = [numChannels]Pins{
	Drogue: {Enable: 10, Activate: 11},
	Main:   {Enable: 12, Activate: 13},
}

type fakeBuzzer struct {
	on    bool
	beeps int
}

func (b *fakeBuzzer) SetTone(on bool) {
	if on && !b.on {
		b.beeps++
	}
	b.on = on
}

type fakeRecorder struct {
	rec    config.Record
	staged int
}

func (r *fakeRecorder) Stage(fn func(*config.Record)) error {
	fn(&r.rec)
	r.staged++
	return nil
}

type harness struct {
	seq    *Sequencer
	gpio   *coretest.MockGPIODriver
	buzzer *fakeBuzzer
	rec    *fakeRecorder
	now    uint32
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DrogueDelay = 100 * time.Millisecond
	cfg.MainDelay = 200 * time.Millisecond
	cfg.FireDuration = 50 * time.Millisecond
	cfg.Beep = 10 * time.Millisecond
	cfg.Pins = testPins
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	core.ResetTimers()
	core.SetTime(0)
	t.Cleanup(func() {
		core.ResetTimers()
		core.SetTime(0)
	})

	h := &harness{
		gpio:   coretest.NewMockGPIODriver(),
		buzzer: &fakeBuzzer{},
		rec:    &fakeRecorder{rec: config.Defaults()},
	}
	h.seq = New(h.gpio, h.buzzer, h.rec, testConfig())
	require.NoError(t, h.seq.Init())
	return h
}

// advance steps the clock in 1 ms increments up to ms
func (h *harness) advance(ms uint32) {
	end := core.TimerFromMS(ms)
	for h.now < end {
		h.now += core.TimerFromMS(1)
		core.SetTime(h.now)
		core.ProcessTimers()
	}
}

func (h *harness) firing(ch Channel) bool {
	p := testPins[ch]
	return h.gpio.ReadPin(p.Enable) && h.gpio.ReadPin(p.Activate)
}

func TestInitDrivesPinsLow(t *testing.T) {
	h := newHarness(t)
	for _, p := range testPins {
		require.Equal(t, coretest.ModeOutput, h.gpio.Mode(p.Enable))
		require.Equal(t, coretest.ModeOutput, h.gpio.Mode(p.Activate))
		require.False(t, h.gpio.ReadPin(p.Enable))
		require.False(t, h.gpio.ReadPin(p.Activate))
	}
}

func TestSequence(t *testing.T) {
	h := newHarness(t)
	h.seq.Arm(0, h.rec.rec)

	h.advance(99)
	require.False(t, h.seq.Fired(Drogue))
	require.False(t, h.firing(Drogue))

	h.advance(100)
	require.True(t, h.seq.Fired(Drogue))
	require.True(t, h.firing(Drogue))
	require.Equal(t, config.StateInFlightPostApogee, h.rec.rec.State)
	require.True(t, h.rec.rec.Flags.PostDrogue())
	require.True(t, h.rec.rec.Flags.InFlight())

	h.advance(150)
	require.False(t, h.firing(Drogue), "drogue released after fire duration")
	require.Equal(t, 2, h.buzzer.beeps)

	h.advance(299)
	require.False(t, h.seq.Fired(Main))

	h.advance(300)
	require.True(t, h.seq.Fired(Main))
	require.True(t, h.firing(Main))
	require.Equal(t, config.StateInFlightPostMain, h.rec.rec.State)
	require.True(t, h.rec.rec.Flags.PostMain())

	h.advance(500)
	require.False(t, h.firing(Main))
	require.Equal(t, 8, h.buzzer.beeps)
	require.False(t, h.buzzer.on)
	require.Equal(t, 2, h.rec.staged)
}

func TestArmAfterResetSkipsFiredDrogue(t *testing.T) {
	h := newHarness(t)
	rec := config.Defaults()
	rec.State = config.StateInFlightPostApogee
	rec.Flags = config.FlagInFlight | config.FlagPostDrogue
	h.rec.rec = rec

	h.seq.Arm(0, rec)
	h.advance(150)
	require.False(t, h.firing(Drogue))
	require.Equal(t, 0, h.rec.staged)

	h.advance(200)
	require.True(t, h.seq.Fired(Main))
	require.Equal(t, config.StateInFlightPostMain, h.rec.rec.State)
	require.Equal(t, 1, h.rec.staged)
}

func TestArmAfterLanding(t *testing.T) {
	h := newHarness(t)
	rec := config.Defaults()
	rec.Flags = config.FlagPostDrogue | config.FlagPostMain

	h.seq.Arm(0, rec)
	h.advance(1000)
	require.Equal(t, 0, h.rec.staged)
	for _, w := range h.gpio.Writes() {
		require.False(t, w.Value, "no pin driven high")
	}
}

func TestDisarm(t *testing.T) {
	h := newHarness(t)
	h.seq.Arm(0, h.rec.rec)
	require.True(t, h.seq.Armed())

	h.advance(50)
	h.seq.Disarm()
	require.False(t, h.seq.Armed())

	h.advance(1000)
	require.False(t, h.seq.Fired(Drogue))
	require.False(t, h.seq.Fired(Main))
}

func TestStateNeverMovesBack(t *testing.T) {
	h := newHarness(t)
	h.rec.rec.State = config.StateLanded
	h.seq.Arm(0, config.Defaults())

	h.advance(100)
	require.True(t, h.seq.Fired(Drogue))
	require.Equal(t, config.StateLanded, h.rec.rec.State)
}
