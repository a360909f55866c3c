package relay

import "errors"

// Domain errors for the relay package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, relay.ErrWaitTimeout) {
//	    // attempt window elapsed without a matching live echo
//	}
var (
	// ErrMalformedPayload is returned when a status payload does not decode
	// to a known relay state. Malformed messages are noise: logged,
	// discarded, and never allowed to signal a pending wait.
	ErrMalformedPayload = errors.New("relay: malformed state payload")

	// ErrWaitTimeout is returned when a confirmation window elapses without
	// a live observation. It is recovered locally by retrying; only the
	// aggregate Result is surfaced to callers.
	ErrWaitTimeout = errors.New("relay: confirmation wait timed out")

	// ErrNotArmed is returned when AwaitLive is called without a preceding
	// Arm. The arm step is what guarantees stale signals cannot satisfy a
	// later wait.
	ErrNotArmed = errors.New("relay: observer not armed")
)
