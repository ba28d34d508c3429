package config

import "strings"

// Flags is the flight flags byte of the record.
type Flags uint8

const (
	FlagInFlight   Flags = 1 << 0
	FlagRecording  Flags = 1 << 1
	FlagPreDrogue  Flags = 1 << 2
	FlagPostDrogue Flags = 1 << 3
	FlagPostMain   Flags = 1 << 4

	// StickyFlags stay set once persisted, until a reset to defaults
	StickyFlags = FlagInFlight | FlagRecording

	allFlags = FlagInFlight | FlagRecording | FlagPreDrogue | FlagPostDrogue | FlagPostMain
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagInFlight, "in-flight"},
	{FlagRecording, "recording"},
	{FlagPreDrogue, "pre-drogue"},
	{FlagPostDrogue, "post-drogue"},
	{FlagPostMain, "post-main"},
}

// Has reports whether every bit of mask is set
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// With returns f with mask set
func (f Flags) With(mask Flags) Flags { return f | mask }

// Without returns f with mask cleared
func (f Flags) Without(mask Flags) Flags { return f &^ mask }

func (f Flags) InFlight() bool   { return f.Has(FlagInFlight) }
func (f Flags) Recording() bool  { return f.Has(FlagRecording) }
func (f Flags) PreDrogue() bool  { return f.Has(FlagPreDrogue) }
func (f Flags) PostDrogue() bool { return f.Has(FlagPostDrogue) }
func (f Flags) PostMain() bool   { return f.Has(FlagPostMain) }

// Names lists the set flags, lowest bit first. Undefined bits are not named.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// FlagByName returns the flag with the given name.
func FlagByName(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}

func (f Flags) String() string {
	names := f.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MarshalText implements encoding.TextMarshaler
func (f Flags) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses the String form, e.g. "in-flight|recording".
func (f *Flags) UnmarshalText(text []byte) error {
	s := string(text)
	var out Flags
	if s != "none" && s != "" {
		for _, name := range strings.Split(s, "|") {
			flag, ok := FlagByName(strings.TrimSpace(name))
			if !ok {
				return ErrUndefinedFlags
			}
			out |= flag
		}
	}
	*f = out
	return nil
}
