package relay

import (
	"sync"
	"testing"

	"github.com/starymuz/spotrelay/internal/infrastructure/mqtt"
)

// fakeTransport is an in-memory Transport for protocol tests.
//
// Subscribed handlers are captured so tests can inject status messages as
// if the broker's delivery goroutine produced them. An optional onPublish
// hook runs synchronously inside Publish, after the publish is recorded,
// which models the device echoing a command.
type fakeTransport struct {
	mu         sync.Mutex
	published  [][]byte
	handlers   map[string]mqtt.MessageHandler
	publishErr error
	onPublish  func(payload []byte, count int)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers: make(map[string]mqtt.MessageHandler),
	}
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	if f.publishErr != nil {
		err := f.publishErr
		f.mu.Unlock()
		return err
	}
	f.published = append(f.published, append([]byte(nil), payload...))
	count := len(f.published)
	hook := f.onPublish
	f.mu.Unlock()

	if hook != nil {
		hook(payload, count)
	}
	return nil
}

func (f *fakeTransport) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

// deliver injects a status message on the given topic.
func (f *fakeTransport) deliver(t *testing.T, topic, payload string, retained bool) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[topic]
	f.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed on %s", topic)
	}
	if err := handler(topic, []byte(payload), retained); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func (f *fakeTransport) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}
