// Package statestore persists the last confirmed relay state.
//
// It is a single durable slot, written only after a confirmed actuation and
// read once per invocation to gate notifications. An unconfirmed attempt is
// never recorded, so a crash or unreachable relay cannot fabricate a state
// transition in the durable record.
package statestore
