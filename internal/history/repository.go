package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starymuz/spotrelay/internal/relay"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// Trigger identifies what started an actuation invocation.
const (
	TriggerSchedule   = "schedule"
	TriggerManual     = "manual"
	TriggerNightGuard = "night_guard"
)

// Entry is one completed actuation invocation.
type Entry struct {
	ID           int64
	OccurredAt   time.Time
	Desired      relay.State
	Succeeded    bool
	AttemptsUsed int

	// PriceEUR is the price that drove the decision; nil when the
	// invocation was not price-driven (night guard, manual).
	PriceEUR *float64

	Trigger string
}

// Record captures what to persist for one invocation.
type Record struct {
	Result   relay.Result
	PriceEUR *float64
	Trigger  string
}

// Repository stores actuation history in the actuation_history table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository over an open, migrated database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordResult inserts a history row for one completed invocation.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - rec: The invocation record
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) RecordResult(ctx context.Context, rec Record) error {
	if rec.Trigger == "" {
		rec.Trigger = TriggerSchedule
	}

	succeeded := 0
	if rec.Result.Succeeded {
		succeeded = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actuation_history
		 (occurred_at, desired_state, succeeded, attempts_used, price_eur_mwh, trigger)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		rec.Result.Desired.String(),
		succeeded,
		rec.Result.AttemptsUsed,
		rec.PriceEUR,
		rec.Trigger,
	)
	if err != nil {
		return fmt.Errorf("inserting actuation history: %w", err)
	}

	return nil
}

// Recent returns the latest history entries, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by occurred_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, occurred_at, desired_state, succeeded, attempts_used, price_eur_mwh, trigger
		 FROM actuation_history
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying actuation history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var occurredAt, desired string
		var succeeded int

		if err := rows.Scan(&entry.ID, &occurredAt, &desired, &succeeded,
			&entry.AttemptsUsed, &entry.PriceEUR, &entry.Trigger); err != nil {
			return nil, fmt.Errorf("scanning actuation history: %w", err)
		}

		entry.OccurredAt, err = time.Parse(time.RFC3339, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		// The CHECK constraint restricts the column to on/off.
		entry.Desired = relay.StateOff
		if desired == "on" {
			entry.Desired = relay.StateOn
		}
		entry.Succeeded = succeeded == 1

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuation history: %w", err)
	}

	return entries, nil
}

// Prune deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention window (entries older than now-olderThan go)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM actuation_history WHERE occurred_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting actuation history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}
