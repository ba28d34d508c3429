// Package config holds the flight configuration record, its flash
// persistence, and the flight state and flags embedded in it.
package config

// State is the flight phase stored in the record. It only moves forward
// during a flight; a reset to defaults returns it to StateGroundIdle.
type State uint8

const (
	StateGroundIdle State = iota
	StateLaunchpad
	StateLaunchpadArmed
	StateInFlightPreApogee
	StateInFlightPostApogee
	StateInFlightPostMain
	StateLanded

	numStates
)

var stateNames = [numStates]string{
	"ground-idle",
	"launchpad",
	"launchpad-armed",
	"in-flight-pre-apogee",
	"in-flight-post-apogee",
	"in-flight-post-main",
	"landed",
}

// Valid reports whether s is one of the defined states
func (s State) Valid() bool {
	return s < numStates
}

func (s State) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return stateNames[s]
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrInvalidState
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(text []byte) error {
	st, ok := ParseState(string(text))
	if !ok {
		return ErrInvalidState
	}
	*s = st
	return nil
}
