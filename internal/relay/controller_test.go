package relay

import (
	"context"
	"sync"
	"testing"
	"time"
)

const testCommandTopic = "test@example.com/rele/1/set"

func newTestController(t *testing.T, maxAttempts int, window time.Duration) (*Controller, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	observer := NewObserver(transport, testStatusTopic, 1, nil)
	if err := observer.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	controller := NewController(transport, observer, ControllerConfig{
		CommandTopic:   testCommandTopic,
		QoS:            1,
		MaxAttempts:    maxAttempts,
		ConfirmTimeout: window,
	}, nil)
	return controller, transport
}

func TestActuate_FirstAttemptConfirmed(t *testing.T) {
	controller, transport := newTestController(t, 3, 100*time.Millisecond)

	// The device echoes the command immediately.
	transport.onPublish = func(payload []byte, count int) {
		transport.deliver(t, testStatusTopic, string(payload), false)
	}

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if !result.Succeeded {
		t.Error("Actuate() Succeeded = false, want true")
	}
	if result.AttemptsUsed != 1 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 1", result.AttemptsUsed)
	}
	if result.Desired != StateOn {
		t.Errorf("Actuate() Desired = %v, want StateOn", result.Desired)
	}
}

func TestActuate_ConfirmedOnThirdAttempt(t *testing.T) {
	controller, transport := newTestController(t, 3, 30*time.Millisecond)

	// Echo only the third command; the first two windows time out.
	transport.onPublish = func(payload []byte, count int) {
		if count == 3 {
			transport.deliver(t, testStatusTopic, string(payload), false)
		}
	}

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if !result.Succeeded {
		t.Error("Actuate() Succeeded = false, want true")
	}
	if result.AttemptsUsed != 3 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 3", result.AttemptsUsed)
	}
}

func TestActuate_AllAttemptsTimeOut(t *testing.T) {
	controller, transport := newTestController(t, 3, 20*time.Millisecond)

	result, err := controller.Actuate(context.Background(), StateOff)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Actuate() Succeeded = true, want false")
	}
	if result.AttemptsUsed != 3 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 3", result.AttemptsUsed)
	}
	if got := transport.publishCount(); got != 3 {
		t.Errorf("publish count = %d, want 3 (one per attempt)", got)
	}
}

func TestActuate_SequentialAttempts(t *testing.T) {
	window := 30 * time.Millisecond
	controller, transport := newTestController(t, 3, window)

	var mu sync.Mutex
	var publishTimes []time.Time
	transport.onPublish = func(payload []byte, count int) {
		mu.Lock()
		publishTimes = append(publishTimes, time.Now())
		mu.Unlock()
	}

	if _, err := controller.Actuate(context.Background(), StateOn); err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(publishTimes) != 3 {
		t.Fatalf("publish count = %d, want 3", len(publishTimes))
	}
	// Attempt k+1 must not be published before attempt k's window resolved.
	for i := 1; i < len(publishTimes); i++ {
		if gap := publishTimes[i].Sub(publishTimes[i-1]); gap < window {
			t.Errorf("attempt %d published %v after attempt %d, want at least %v",
				i+1, gap, i, window)
		}
	}
}

func TestActuate_RetainedEchoNeverConfirms(t *testing.T) {
	controller, transport := newTestController(t, 2, 20*time.Millisecond)

	// The broker replays the matching value as retained after every publish.
	// Only a live echo may confirm, so the invocation must fail.
	transport.onPublish = func(payload []byte, count int) {
		transport.deliver(t, testStatusTopic, string(payload), true)
	}

	result, err := controller.Actuate(context.Background(), StateOff)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Actuate() confirmed from a retained echo")
	}
}

func TestActuate_ContradictingStateDoesNotConfirm(t *testing.T) {
	controller, transport := newTestController(t, 1, 60*time.Millisecond)

	// The device first reports the opposite state, then the desired one,
	// both within a single window. The contradiction must neither confirm
	// nor abort the wait.
	transport.onPublish = func(payload []byte, count int) {
		transport.deliver(t, testStatusTopic, "0", false)
		go func() {
			time.Sleep(10 * time.Millisecond)
			transport.deliver(t, testStatusTopic, "1", false)
		}()
	}

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if !result.Succeeded {
		t.Error("Actuate() Succeeded = false, want true (later matching echo)")
	}
	if result.AttemptsUsed != 1 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 1 (contradiction is not an extra attempt)", result.AttemptsUsed)
	}
}

func TestActuate_BufferedContradictionThenMatchConfirms(t *testing.T) {
	controller, transport := newTestController(t, 1, 60*time.Millisecond)

	// Both echoes are delivered before the controller consumes either: the
	// contradicting state first, then the commanded one. The matching echo
	// must not be lost behind the unconsumed contradiction.
	transport.onPublish = func(payload []byte, count int) {
		transport.deliver(t, testStatusTopic, "1", false)
		transport.deliver(t, testStatusTopic, "0", false)
	}

	result, err := controller.Actuate(context.Background(), StateOff)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if !result.Succeeded {
		t.Error("Actuate() Succeeded = false, want true (matching echo superseded the contradiction)")
	}
	if result.AttemptsUsed != 1 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 1", result.AttemptsUsed)
	}
}

func TestActuate_ContradictionOnlyTimesOut(t *testing.T) {
	controller, transport := newTestController(t, 2, 20*time.Millisecond)

	transport.onPublish = func(payload []byte, count int) {
		transport.deliver(t, testStatusTopic, "0", false)
	}

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Actuate() confirmed from a contradicting echo")
	}
	if result.AttemptsUsed != 2 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 2", result.AttemptsUsed)
	}
}

func TestActuate_StaleLiveMessageDoesNotConfirm(t *testing.T) {
	controller, transport := newTestController(t, 1, 20*time.Millisecond)

	// A matching live message delivered before the command is published is
	// a stale signal; arming on each attempt must discard it.
	transport.deliver(t, testStatusTopic, "1", false)

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Actuate() confirmed from a pre-command live message")
	}
}

func TestActuate_ContextCancelled(t *testing.T) {
	controller, _ := newTestController(t, 3, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result, err := controller.Actuate(ctx, StateOn)
	if err == nil {
		t.Fatal("Actuate() error = nil, want context error")
	}
	if result.Succeeded {
		t.Error("Actuate() Succeeded = true after cancellation")
	}
}

func TestActuate_PublishFailureConsumesAttempt(t *testing.T) {
	controller, transport := newTestController(t, 2, 20*time.Millisecond)
	transport.publishErr = context.DeadlineExceeded // any transport error

	result, err := controller.Actuate(context.Background(), StateOn)
	if err != nil {
		t.Fatalf("Actuate() error = %v", err)
	}
	if result.Succeeded {
		t.Error("Actuate() Succeeded = true, want false")
	}
	if result.AttemptsUsed != 2 {
		t.Errorf("Actuate() AttemptsUsed = %d, want 2", result.AttemptsUsed)
	}
}
