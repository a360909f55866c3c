// Package logging provides structured logging for Spot Relay.
//
// It wraps the standard library's log/slog with configuration-driven
// level, format, and output selection, plus default service fields.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("relay confirmed", "state", "on", "attempts", 1)
package logging
