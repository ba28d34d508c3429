//go:build !tinygo

package core

// State stands in for the saved interrupt mask on host builds
type State uintptr

// disableInterrupts is a no-op on host builds; timers are only touched
// from the test goroutine there
func disableInterrupts() State {
	return 0
}

func restoreInterrupts(State) {}
