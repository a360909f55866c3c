package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/starymuz/spotrelay/internal/history"
	"github.com/starymuz/spotrelay/internal/notify"
	"github.com/starymuz/spotrelay/internal/prices"
	"github.com/starymuz/spotrelay/internal/relay"
)

// nightObserveWindow bounds how long the night guard waits for a live
// status report before concluding the relay state is unknown.
const nightObserveWindow = 30 * time.Second

// Session is one exclusive broker connection with the confirmation
// machinery attached. Close tears the connection down.
type Session interface {
	// Actuate runs the confirmed actuation protocol for the desired state.
	Actuate(ctx context.Context, desired relay.State) (relay.Result, error)

	// ObserveLive waits for a single live status report within the window.
	// Retained replays never satisfy it; relay.ErrWaitTimeout means no
	// device spoke up in time.
	ObserveLive(ctx context.Context, window time.Duration) (relay.Observation, error)

	Close() error
}

// SessionFactory opens a fresh session per invocation.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// PriceSource decides whether the current quarter-hour is below the
// switching threshold.
type PriceSource interface {
	Decide(now time.Time) (price float64, below bool, err error)
}

// Gate is the change-gated notification step.
type Gate interface {
	Process(ctx context.Context, result relay.Result) (notify.Outcome, error)
}

// HistorySink records completed invocations. Nil-able on the Engine.
type HistorySink interface {
	RecordResult(ctx context.Context, rec history.Record) error
}

// Telemetry receives time-series samples. Nil-able on the Engine.
type Telemetry interface {
	WritePriceSample(period int, priceEUR float64, belowLimit bool)
	WriteActuation(desired string, succeeded bool, attempts int, trigger string)
}

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine runs actuation cycles against injected collaborators.
type Engine struct {
	sessions  SessionFactory
	prices    PriceSource
	gate      Gate
	history   HistorySink
	telemetry Telemetry
	skew      time.Duration
	logger    Logger

	// now is swappable for tests.
	now func() time.Time
}

// EngineConfig collects the constructor parameters for an Engine.
type EngineConfig struct {
	Sessions SessionFactory
	Prices   PriceSource
	Gate     Gate

	// History and Telemetry are optional; nil disables the sink.
	History   HistorySink
	Telemetry Telemetry

	// Skew is the forward clock adjustment applied when resolving the
	// quarter-hour period for telemetry.
	Skew time.Duration

	Logger Logger
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		sessions:  cfg.Sessions,
		prices:    cfg.Prices,
		gate:      cfg.Gate,
		history:   cfg.History,
		telemetry: cfg.Telemetry,
		skew:      cfg.Skew,
		logger:    logger,
		now:       time.Now,
	}
}

// RunCycle executes one price-driven actuation invocation.
//
// The price decision happens before any connection is made: a missing or
// stale price table aborts the cycle without touching the relay. A broker
// connection failure likewise aborts before the first attempt. From the
// first published command onward the invocation always reaches the gate,
// so a failure alert cannot be skipped.
//
// Parameters:
//   - ctx: Context; cancellation aborts between protocol steps
//   - trigger: History label for what started this invocation
//
// Returns:
//   - error: Price, connection, context, or gate error; an unconfirmed
//     actuation is not an error (the gate alerts on it)
func (e *Engine) RunCycle(ctx context.Context, trigger string) error {
	now := e.now()

	price, below, err := e.prices.Decide(now)
	if err != nil {
		return fmt.Errorf("deciding price: %w", err)
	}

	desired := relay.StateOff
	if below {
		desired = relay.StateOn
	}

	e.logger.Info("cycle decision",
		"price_eur_mwh", price,
		"below_limit", below,
		"desired", desired.String(),
	)
	if e.telemetry != nil {
		e.telemetry.WritePriceSample(prices.PeriodAt(now, e.skew), price, below)
	}

	session, err := e.sessions.Open(ctx)
	if err != nil {
		return fmt.Errorf("opening broker session: %w", err)
	}
	defer e.closeSession(session)

	result, err := session.Actuate(ctx, desired)
	if err != nil {
		return err
	}

	return e.finish(ctx, result, &price, trigger)
}

// RunNightGuard sweeps the relay off outside scheduled hours.
//
// It observes the status topic for a short window: only a live report of
// the ON state triggers an actuation. Retained replays and silence leave
// the relay untouched, so a sleeping device is never woken by the guard.
//
// Parameters:
//   - ctx: Context; cancellation aborts between protocol steps
//
// Returns:
//   - error: Connection, context, or gate error
func (e *Engine) RunNightGuard(ctx context.Context) error {
	session, err := e.sessions.Open(ctx)
	if err != nil {
		return fmt.Errorf("opening broker session: %w", err)
	}
	defer e.closeSession(session)

	obs, err := session.ObserveLive(ctx, nightObserveWindow)
	if errors.Is(err, relay.ErrWaitTimeout) {
		e.logger.Info("night guard: no live status, leaving relay untouched")
		return nil
	}
	if err != nil {
		return err
	}

	if obs.State != relay.StateOn {
		e.logger.Debug("night guard: relay already off")
		return nil
	}

	e.logger.Warn("night guard: relay reported on, switching off")

	result, err := session.Actuate(ctx, relay.StateOff)
	if err != nil {
		return err
	}

	return e.finish(ctx, result, nil, history.TriggerNightGuard)
}

// finish runs the post-actuation pipeline shared by all invocation kinds.
func (e *Engine) finish(ctx context.Context, result relay.Result, price *float64, trigger string) error {
	outcome, gateErr := e.gate.Process(ctx, result)
	e.logger.Info("invocation finished",
		"desired", result.Desired.String(),
		"succeeded", result.Succeeded,
		"attempts", result.AttemptsUsed,
		"outcome", outcome.String(),
	)

	if e.history != nil {
		if err := e.history.RecordResult(ctx, history.Record{
			Result:   result,
			PriceEUR: price,
			Trigger:  trigger,
		}); err != nil {
			e.logger.Error("recording actuation history failed", "error", err)
		}
	}
	if e.telemetry != nil {
		e.telemetry.WriteActuation(result.Desired.String(), result.Succeeded,
			result.AttemptsUsed, trigger)
	}

	return gateErr
}

func (e *Engine) closeSession(session Session) {
	if err := session.Close(); err != nil {
		e.logger.Warn("closing broker session failed", "error", err)
	}
}
