package statestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/starymuz/spotrelay/internal/relay"
)

// File permission modes for the state slot.
const (
	dirPermissions  = 0750
	filePermissions = 0600
)

// Store is a single-slot durable record of the last confirmed relay state.
//
// The slot holds the wire encoding ("1"/"0") of the state, so it is
// directly comparable with command payloads and readable by external
// tooling. The record survives process restarts and is created lazily on
// the first successful confirmation; it is never deleted by this package.
type Store struct {
	path   string
	logger Logger
}

// Logger is the logging interface used by this package.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// New creates a store backed by the given file path.
//
// Parameters:
//   - path: Filesystem path of the state slot
//   - logger: Logger instance (nil for no logging)
func New(path string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{path: path, logger: logger}
}

// Read returns the last confirmed state and whether one is known.
//
// A missing file is the normal first-run condition and reads as unknown.
// A corrupt or unparseable record also degrades to unknown (logged); it is
// never fatal and never blocks actuation.
//
// Returns:
//   - relay.State: The recorded state, valid only when known is true
//   - known: false when the slot is absent or unreadable
func (s *Store) Read() (state relay.State, known bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("state slot unreadable, treating as unknown",
				"path", s.path,
				"error", err,
			)
		}
		return relay.StateOff, false
	}

	state, err = relay.ParseState(data)
	if err != nil {
		s.logger.Warn("state slot corrupt, treating as unknown",
			"path", s.path,
			"content", string(data),
		)
		return relay.StateOff, false
	}

	return state, true
}

// Write durably records the given state as the last confirmed state.
//
// The write is an atomic replace: the new value goes to a temp file in the
// same directory which is then renamed over the slot, so a crash mid-write
// never leaves a corrupt or half-written record.
//
// Parameters:
//   - state: The newly confirmed state
//
// Returns:
//   - error: If the slot cannot be written
func (s *Store) Write(state relay.State) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".last_state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any failure path.
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(state.Payload()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		return fmt.Errorf("setting state file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	return nil
}

// Path returns the filesystem path of the state slot.
func (s *Store) Path() string {
	return s.path
}
