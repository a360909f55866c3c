package notify

import (
	"context"
	"fmt"

	"github.com/starymuz/spotrelay/internal/relay"
)

// StateStore is the persisted last-confirmed-state slot the gate reads
// and updates.
type StateStore interface {
	Read() (state relay.State, known bool)
	Write(state relay.State) error
}

// Outcome classifies what the gate did with one actuation result.
type Outcome int

const (
	// OutcomeUnchanged means the confirmed state matched the record; no
	// alert was sent.
	OutcomeUnchanged Outcome = iota

	// OutcomeChanged means a confirmed transition was alerted and recorded.
	OutcomeChanged

	// OutcomeFailed means the retry budget was exhausted and a failure
	// alert was sent.
	OutcomeFailed
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeChanged:
		return "changed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unchanged"
	}
}

// Gate turns actuation results into at-most-one operator alert each.
//
// The decision keys on the persisted record, not on in-memory history, so
// repeated invocations converging on the same state stay silent across
// process restarts. An unknown record (first run, corrupt slot) counts as
// a change. Failures always alert; the record is left untouched so the
// next confirmed success still reports the real transition.
type Gate struct {
	store    StateStore
	notifier Notifier
	relay    string
	logger   Logger
}

// NewGate creates a gate over the given state slot and notifier.
//
// Parameters:
//   - store: Persisted last-confirmed-state slot
//   - notifier: Alert delivery channel
//   - relayName: Human-readable relay name used in alert texts
//   - logger: Logger instance (nil for no logging)
func NewGate(store StateStore, notifier Notifier, relayName string, logger Logger) *Gate {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Gate{
		store:    store,
		notifier: notifier,
		relay:    relayName,
		logger:   logger,
	}
}

// Process applies the change gate to one actuation result.
//
// On a confirmed transition the alert is sent before the record is
// updated; if delivery fails the record is still updated (the transition
// did happen) and the send error is returned alongside the outcome.
//
// Parameters:
//   - ctx: Context for notification delivery
//   - result: Terminal actuation outcome from the controller
//
// Returns:
//   - Outcome: What the gate decided
//   - error: Notification or persistence failure; the Outcome is valid
//     either way
func (g *Gate) Process(ctx context.Context, result relay.Result) (Outcome, error) {
	if !result.Succeeded {
		text := fmt.Sprintf("⚠️ %s: failed to switch %s after %d attempts",
			g.relay, result.Desired, result.AttemptsUsed)
		g.logger.Warn("actuation failed, alerting",
			"desired", result.Desired.String(),
			"attempts", result.AttemptsUsed,
		)
		return OutcomeFailed, g.notifier.Send(ctx, text)
	}

	last, known := g.store.Read()
	if known && last == result.Desired {
		g.logger.Debug("state unchanged, suppressing notification",
			"state", result.Desired.String(),
		)
		// Refresh the record anyway: the write is idempotent and recreates
		// a slot that was deleted out from under us.
		if err := g.store.Write(result.Desired); err != nil {
			g.logger.Warn("refreshing confirmed state failed",
				"state", result.Desired.String(),
				"error", err,
			)
			return OutcomeUnchanged, err
		}
		return OutcomeUnchanged, nil
	}

	text := fmt.Sprintf("🔌 %s switched <b>%s</b> (confirmed on attempt %d)",
		g.relay, result.Desired, result.AttemptsUsed)
	sendErr := g.notifier.Send(ctx, text)

	if err := g.store.Write(result.Desired); err != nil {
		g.logger.Warn("persisting confirmed state failed",
			"state", result.Desired.String(),
			"error", err,
		)
		if sendErr != nil {
			return OutcomeChanged, fmt.Errorf("notify: %w; persist: %w", sendErr, err)
		}
		return OutcomeChanged, err
	}

	g.logger.Info("confirmed state change recorded",
		"state", result.Desired.String(),
		"attempts", result.AttemptsUsed,
	)
	return OutcomeChanged, sendErr
}
