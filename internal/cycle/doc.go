// Package cycle orchestrates one actuation invocation end to end.
//
// A cycle loads the cached day-ahead prices, decides the desired relay
// state for the current quarter-hour, opens a fresh broker session, runs
// the confirmed actuation protocol, gates the operator alert on the
// persisted state, and records the outcome in the history and telemetry
// sinks. The session is torn down on every exit path; nothing is reused
// between invocations.
//
// The night guard is a safety sweep that forces the relay off when a live
// status report says it is on outside the scheduled windows.
package cycle
