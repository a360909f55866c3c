// Package relay implements the confirmed actuation protocol for a single
// MQTT-reachable relay.
//
// The relay is an unreliable, asynchronous actuator: commands are published
// to its command topic and the only evidence a command took effect is the
// device echoing its actual state on the status topic. This package drives
// the relay to a desired binary state and reports whether the transition was
// confirmed, not assumed.
//
// # Key Types
//
//   - State: the closed ON/OFF enum; ParseState is the single decode point
//     at the transport boundary, everything past it sees only the enum
//   - Observation: one decoded status message with its retained flag
//   - Observer: tracks the latest live observation and hands it to an armed
//     waiter; retained replays are recorded but never signal
//   - Controller: the protocol engine; publishes, awaits a live echo within
//     a bounded window, retries up to the attempt budget
//   - Result: the terminal outcome of one actuation invocation
//
// # Protocol
//
// For each attempt the controller arms the observer (discarding any stale
// signal), publishes the desired state, then consumes live observations
// until one matches, the window closes, or the context is cancelled. The
// protocol is strictly sequential: attempt k+1 is never published before
// attempt k has resolved, so every echo is unambiguously attributable.
//
// Retained messages are the broker's replay of the last value at subscribe
// time. They predate any command of this session and must never confirm
// one; the observer records them for diagnostics only.
package relay
