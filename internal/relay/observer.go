package relay

import (
	"context"
	"sync"
	"time"

	"github.com/starymuz/spotrelay/internal/infrastructure/mqtt"
)

// Transport is the interface the relay package needs from the MQTT layer.
// It is satisfied by *mqtt.Client and by fakes in tests.
type Transport interface {
	// Publish sends a message; fire-and-forget at the transport level.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for messages on the topic, including
	// the broker's retained flag.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is provided.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer wraps one relay status topic.
//
// It is written to by the transport's delivery goroutine and read by the
// foreground actuation flow; all shared state is mutex-guarded. The observer
// keeps only the latest observation, never a queue: with at most one
// outstanding command, last-write-wins collapses duplicate echoes safely.
//
// Retained messages are recorded as the last known value at connect but
// never signal a waiter; only live messages can satisfy a confirmation wait.
type Observer struct {
	transport Transport
	topic     string
	qos       byte
	logger    Logger

	mu     sync.Mutex
	latest *Observation     // most recent observation of any kind
	waiter chan Observation // armed single-slot waiter; nil when disarmed
}

// NewObserver creates an observer for the given status topic.
//
// Call Start to subscribe before any actuation attempt.
//
// Parameters:
//   - transport: Connected transport used for the subscription
//   - topic: The relay's status topic
//   - qos: QoS level for the subscription
//   - logger: Logger instance (nil for no logging)
func NewObserver(transport Transport, topic string, qos byte, logger Logger) *Observer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Observer{
		transport: transport,
		topic:     topic,
		qos:       qos,
		logger:    logger,
	}
}

// Start subscribes to the status topic.
//
// Returns:
//   - error: If the subscription fails
func (o *Observer) Start() error {
	return o.transport.Subscribe(o.topic, o.qos, o.handleMessage)
}

// handleMessage is invoked by the transport's delivery goroutine for each
// status message.
//
// Malformed payloads are noise: logged and discarded without signalling.
func (o *Observer) handleMessage(topic string, payload []byte, retained bool) error {
	state, err := ParseState(payload)
	if err != nil {
		o.logger.Warn("discarding malformed status payload",
			"topic", topic,
			"payload", string(payload),
		)
		return nil
	}

	obs := Observation{
		State:      state,
		Retained:   retained,
		ReceivedAt: time.Now(),
	}

	o.mu.Lock()
	o.latest = &obs
	if retained {
		o.mu.Unlock()
		o.logger.Debug("recorded retained status", "state", state.String())
		return nil
	}

	// Live observation: signal an armed waiter, if any. The slot must hold
	// the newest observation, so an unconsumed older signal is drained and
	// replaced: out-of-order duplicate echoes collapse to last write wins.
	if o.waiter != nil {
		select {
		case <-o.waiter:
		default:
		}
		o.waiter <- obs
	}
	o.mu.Unlock()

	return nil
}

// Arm installs a fresh waiter, discarding any stale buffered signal.
//
// The controller arms immediately before publishing a command, so a live
// message delivered before the publish can never satisfy the wait that
// follows it.
func (o *Observer) Arm() {
	o.mu.Lock()
	o.waiter = make(chan Observation, 1)
	o.mu.Unlock()
}

// Disarm clears the wait state so no later wait is satisfied for free.
func (o *Observer) Disarm() {
	o.mu.Lock()
	o.waiter = nil
	o.mu.Unlock()
}

// AwaitLive blocks until a live observation arrives, the timeout elapses,
// or the context is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation
//   - timeout: Maximum time to wait
//
// Returns:
//   - Observation: The live observation that arrived
//   - error: ErrWaitTimeout on window expiry, ErrNotArmed if Arm was not
//     called, or the context error on cancellation
func (o *Observer) AwaitLive(ctx context.Context, timeout time.Duration) (Observation, error) {
	o.mu.Lock()
	waiter := o.waiter
	o.mu.Unlock()

	if waiter == nil {
		return Observation{}, ErrNotArmed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case obs := <-waiter:
		return obs, nil
	case <-timer.C:
		return Observation{}, ErrWaitTimeout
	case <-ctx.Done():
		return Observation{}, ctx.Err()
	}
}

// LastKnown returns the most recent observation of any kind, retained
// included, and whether one exists.
//
// This is for diagnostics and the night-guard's state peek; it is never
// used for confirmation.
func (o *Observer) LastKnown() (Observation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.latest == nil {
		return Observation{}, false
	}
	return *o.latest, true
}
