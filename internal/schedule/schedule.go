package schedule

import (
	"context"
	"time"
)

// NextMark returns the next instant strictly after now whose minute equals
// the mark.
//
// Parameters:
//   - now: Current wall-clock time
//   - minuteMark: Minute of the hour, 0..59
//
// Returns:
//   - time.Time: The next mark, with seconds and sub-seconds zeroed
func NextMark(now time.Time, minuteMark int) time.Time {
	mark := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minuteMark, 0, 0, now.Location())
	if !mark.After(now) {
		mark = mark.Add(time.Hour)
	}
	return mark
}

// Wait blocks until the given instant or context cancellation.
//
// Parameters:
//   - ctx: Context; cancellation unblocks early
//   - until: The instant to wait for
//
// Returns:
//   - error: ctx.Err() on cancellation, nil when the instant is reached
func Wait(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
