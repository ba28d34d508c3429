package core

import "sync"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a storage or sequencing event for post-mortem analysis
type Event struct {
	EventType uint8  // Event type code
	Code      uint8  // Opcode, state or flag byte depending on type
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value (usually an address)
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtCommand      = 1  // flash command issued
	EvtBusy         = 2  // operation refused, device busy
	EvtComplete     = 3  // program/erase finished, Value2 = polls
	EvtTimeout      = 4  // poll deadline passed
	EvtProgramError = 5  // status reported program error
	EvtEraseError   = 6  // status reported erase error
	EvtIdentity     = 7  // identity read, Value1 = packed ID
	EvtConfigLoad   = 8  // configuration loaded, Code = 1 on failure
	EvtConfigSave   = 9  // configuration saved, Code = 1 on failure
	EvtDegraded     = 10 // persistence gave up
	EvtDeploy       = 11 // recovery channel fired, Code = channel
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	debugEnabled bool = false

	eventMu       sync.Mutex
	eventRing     [EventRingSize]Event
	eventRingHead uint8

	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, glog, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled {
		return
	}
	if debugChan == nil {
		DebugPrintln(msg)
		return
	}
	select {
	case debugChan <- msg:
	default:
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType, code uint8, value1, value2 uint32) {
	eventMu.Lock()
	idx := eventRingHead
	eventRing[idx] = Event{
		EventType: eventType,
		Code:      code,
		Clock:     GetTime(),
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
	eventMu.Unlock()
}

// Events returns the recorded events from oldest to newest
func Events() []Event {
	eventMu.Lock()
	defer eventMu.Unlock()

	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns the dump label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtCommand:
		return "CMD"
	case EvtBusy:
		return "BUSY"
	case EvtComplete:
		return "DONE"
	case EvtTimeout:
		return "TIMEOUT!"
	case EvtProgramError:
		return "P_ERR!"
	case EvtEraseError:
		return "E_ERR!"
	case EvtIdentity:
		return "IDENT"
	case EvtConfigLoad:
		return "CFG_LOAD"
	case EvtConfigSave:
		return "CFG_SAVE"
	case EvtDegraded:
		return "DEGRADED!"
	case EvtDeploy:
		return "DEPLOY"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.EventType) +
			" code=" + Hex8(evt.Code) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + Hex32(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	eventMu.Lock()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	eventMu.Unlock()
}
