package relay

import (
	"bytes"
	"fmt"
	"time"
)

// State is the canonical binary actuation state.
//
// Comparisons are structural equality; there are no partial states.
type State int

const (
	// StateOff means the relay contacts are open.
	StateOff State = iota

	// StateOn means the relay contacts are closed.
	StateOn
)

// String returns a human-readable state name.
func (s State) String() string {
	if s == StateOn {
		return "on"
	}
	return "off"
}

// Payload returns the wire encoding of the state.
//
// OpenBeken relays use "1"/"0" on both the command and status topics; the
// persisted state slot uses the same encoding so the file is directly
// comparable with wire payloads.
func (s State) Payload() []byte {
	if s == StateOn {
		return []byte("1")
	}
	return []byte("0")
}

// ParseState decodes a status payload into a State.
//
// This is the single decode point at the transport boundary: everything
// past it operates on the closed State enum. Whitespace is tolerated;
// anything other than "1" or "0" is ErrMalformedPayload.
//
// Parameters:
//   - payload: Raw message payload from the status topic
//
// Returns:
//   - State: The decoded state
//   - error: ErrMalformedPayload if the payload is not a known state
func ParseState(payload []byte) (State, error) {
	switch string(bytes.TrimSpace(payload)) {
	case "1":
		return StateOn, nil
	case "0":
		return StateOff, nil
	default:
		return StateOff, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}
}

// Observation is one decoded status message from the relay.
type Observation struct {
	// State is the relay state the device reported.
	State State

	// Retained marks broker replays of the last known value at subscribe
	// time. Retained observations predate any command of this session and
	// never satisfy a confirmation wait.
	Retained bool

	// ReceivedAt is when the message was delivered to this process.
	ReceivedAt time.Time
}

// Result is the controller's terminal output for one actuation invocation.
type Result struct {
	// Desired is the state the invocation tried to reach.
	Desired State

	// Succeeded is true if a live echo of Desired arrived within one of the
	// attempt windows.
	Succeeded bool

	// AttemptsUsed is the number of attempts consumed, 1..MaxAttempts.
	AttemptsUsed int
}
