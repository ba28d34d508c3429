package flash

// Status is the flash status register
type Status uint8

// Status register bits
const (
	StatusWriteInProgress Status = 1 << 0
	StatusWriteEnable     Status = 1 << 1
	StatusEraseError      Status = 1 << 5
	StatusProgramError    Status = 1 << 6
)

// WriteInProgress reports a program or erase still running
func (s Status) WriteInProgress() bool { return s&StatusWriteInProgress != 0 }

// WriteEnabled reports the write-enable latch
func (s Status) WriteEnabled() bool { return s&StatusWriteEnable != 0 }

// EraseError reports that the last erase failed
func (s Status) EraseError() bool { return s&StatusEraseError != 0 }

// ProgramError reports that the last page program failed
func (s Status) ProgramError() bool { return s&StatusProgramError != 0 }

func (s Status) String() string {
	out := ""
	add := func(set bool, name string) {
		if !set {
			return
		}
		if out != "" {
			out += "|"
		}
		out += name
	}
	add(s.WriteInProgress(), "WIP")
	add(s.WriteEnabled(), "WEL")
	add(s.EraseError(), "E_ERR")
	add(s.ProgramError(), "P_ERR")
	if out == "" {
		return "idle"
	}
	return out
}
