// Package notify delivers operator alerts and gates them on state change.
//
// The gate compares each actuation outcome against the persisted last
// confirmed state: a confirmed transition alerts once and updates the
// record, a confirmed no-op stays silent, and an exhausted retry budget
// always alerts regardless of recorded state. Delivery goes through the
// Telegram Bot API; without credentials the notifier degrades to a logged
// no-op so the actuation path keeps working in development setups.
package notify
