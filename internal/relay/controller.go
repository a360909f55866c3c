package relay

import (
	"context"
	"errors"
	"time"
)

// Controller is the confirmed actuation protocol engine.
//
// It publishes a desired-state command, awaits an authoritative live echo
// within a bounded window, and retries up to the attempt budget. The
// protocol is strictly sequential: at most one attempt is pending at any
// time, and attempt k+1 is never published before attempt k has resolved.
//
// A Controller exclusively owns its transport connection for the duration
// of one Actuate invocation; concurrent controllers must not share a live
// session against the same relay or echo attribution becomes ambiguous.
type Controller struct {
	transport      Transport
	observer       *Observer
	commandTopic   string
	qos            byte
	maxAttempts    int
	confirmTimeout time.Duration
	logger         Logger
}

// ControllerConfig collects the constructor parameters for a Controller.
type ControllerConfig struct {
	// CommandTopic is the relay's command input topic.
	CommandTopic string

	// QoS is the QoS level for published commands.
	QoS byte

	// MaxAttempts is the retry budget per invocation.
	MaxAttempts int

	// ConfirmTimeout is the per-attempt confirmation window.
	ConfirmTimeout time.Duration
}

// NewController creates a controller bound to an observer that is already
// subscribed to the relay's status topic.
//
// Parameters:
//   - transport: Connected transport for publishing commands
//   - observer: Observer wrapping the relay's status topic
//   - cfg: Protocol parameters
//   - logger: Logger instance (nil for no logging)
func NewController(transport Transport, observer *Observer, cfg ControllerConfig, logger Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		transport:      transport,
		observer:       observer,
		commandTopic:   cfg.CommandTopic,
		qos:            cfg.QoS,
		maxAttempts:    cfg.MaxAttempts,
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         logger,
	}
}

// Actuate drives the relay to the desired state and reports a definitive
// outcome.
//
// Per attempt: arm the observer (discarding stale signals), publish the
// command, then consume live observations for the remainder of the window.
// A live observation equal to desired confirms the attempt. A live
// observation of the opposite state is not a match; it is logged and the
// wait continues on the remaining window. Window expiry moves to the next
// attempt. Connection loss mid-wait surfaces as that attempt's timeout.
//
// Parameters:
//   - ctx: Context; cancellation aborts between waits with ctx.Err()
//   - desired: The state to drive the relay to
//
// Returns:
//   - Result: Definitive outcome; Succeeded=false after the budget is spent
//   - error: Only a context error; protocol timeouts are folded into Result
func (c *Controller) Actuate(ctx context.Context, desired State) (Result, error) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		confirmed, err := c.runAttempt(ctx, desired, attempt)
		if err != nil {
			return Result{Desired: desired, Succeeded: false, AttemptsUsed: attempt}, err
		}
		if confirmed {
			c.logger.Info("actuation confirmed",
				"state", desired.String(),
				"attempt", attempt,
			)
			return Result{Desired: desired, Succeeded: true, AttemptsUsed: attempt}, nil
		}

		c.logger.Warn("confirmation window elapsed",
			"state", desired.String(),
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
		)
	}

	return Result{Desired: desired, Succeeded: false, AttemptsUsed: c.maxAttempts}, nil
}

// runAttempt executes a single publish-and-confirm attempt.
//
// Returns confirmed=false with a nil error when the attempt timed out;
// a non-nil error only on context cancellation.
func (c *Controller) runAttempt(ctx context.Context, desired State, attempt int) (bool, error) {
	// Arm before publishing: any live message from before this point is a
	// stale signal and must not satisfy this attempt's wait.
	c.observer.Arm()
	defer c.observer.Disarm()

	if err := c.transport.Publish(c.commandTopic, desired.Payload(), c.qos, false); err != nil {
		// Publish failure (broker unreachable mid-invocation) resolves the
		// attempt as unconfirmed; the retry loop decides what happens next.
		c.logger.Warn("command publish failed",
			"attempt", attempt,
			"error", err,
		)
		return false, nil
	}

	deadline := time.Now().Add(c.confirmTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		obs, err := c.observer.AwaitLive(ctx, remaining)
		if errors.Is(err, ErrWaitTimeout) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if obs.State == desired {
			return true, nil
		}

		// The device actively reports the opposite state. Not a match and
		// not an extra attempt; keep waiting on the remaining window.
		c.logger.Debug("live status contradicts command",
			"reported", obs.State.String(),
			"desired", desired.String(),
		)
	}
}
