package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/starymuz/spotrelay/internal/infrastructure/config"
	"github.com/starymuz/spotrelay/internal/infrastructure/mqtt"
	"github.com/starymuz/spotrelay/internal/prices"
	"github.com/starymuz/spotrelay/internal/relay"
)

// MQTTSessions opens broker-backed sessions: a fresh connection, a
// subscribed observer, and a controller per invocation.
type MQTTSessions struct {
	cfg    config.MQTTConfig
	relay  config.RelayConfig
	logger Logger
}

// NewMQTTSessions creates a session factory for the configured broker and
// relay.
func NewMQTTSessions(mqttCfg config.MQTTConfig, relayCfg config.RelayConfig, logger Logger) *MQTTSessions {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSessions{cfg: mqttCfg, relay: relayCfg, logger: logger}
}

// Open connects to the broker and subscribes the observer.
//
// The returned session owns the connection; the caller must Close it on
// every exit path.
func (f *MQTTSessions) Open(_ context.Context) (Session, error) {
	client, err := mqtt.Connect(f.cfg)
	if err != nil {
		return nil, err
	}
	client.SetLogger(f.logger)

	topics := mqtt.Topics{Base: f.relay.BaseTopic}
	qos := byte(f.cfg.QoS)

	observer := relay.NewObserver(client, topics.RelayStatus(f.relay.Index), qos, f.logger)
	if err := observer.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("subscribing to status topic: %w", err)
	}

	controller := relay.NewController(client, observer, relay.ControllerConfig{
		CommandTopic:   topics.RelayCommand(f.relay.Index),
		QoS:            qos,
		MaxAttempts:    f.relay.MaxAttempts,
		ConfirmTimeout: f.relay.ConfirmTimeoutDuration(),
	}, f.logger)

	return &mqttSession{
		client:     client,
		observer:   observer,
		controller: controller,
	}, nil
}

type mqttSession struct {
	client     *mqtt.Client
	observer   *relay.Observer
	controller *relay.Controller
}

func (s *mqttSession) Actuate(ctx context.Context, desired relay.State) (relay.Result, error) {
	return s.controller.Actuate(ctx, desired)
}

func (s *mqttSession) ObserveLive(ctx context.Context, window time.Duration) (relay.Observation, error) {
	s.observer.Arm()
	defer s.observer.Disarm()
	return s.observer.AwaitLive(ctx, window)
}

func (s *mqttSession) Close() error {
	return s.client.Close()
}

// CachePrices decides from the CSV cache written by the fetcher.
//
// The cache is re-read on every decision: the file is tiny, and re-reading
// picks up a table refreshed by a concurrent fetch without coordination.
type CachePrices struct {
	path  string
	limit float64
	skew  time.Duration
}

// NewCachePrices creates a cache-backed price source.
//
// Parameters:
//   - path: CSV cache path
//   - limit: Switching threshold in EUR/MWh
//   - skew: Forward clock adjustment for period resolution
func NewCachePrices(path string, limit float64, skew time.Duration) *CachePrices {
	return &CachePrices{path: path, limit: limit, skew: skew}
}

// Decide loads the cache and prices the current quarter-hour.
func (p *CachePrices) Decide(now time.Time) (float64, bool, error) {
	table, err := prices.LoadCSV(p.path)
	if err != nil {
		return 0, false, err
	}
	return table.Decide(now, p.skew, p.limit)
}
