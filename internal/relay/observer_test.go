package relay

import (
	"context"
	"errors"
	"testing"
	"time"
)

const testStatusTopic = "test@example.com/rele/1/get"

func newTestObserver(t *testing.T) (*Observer, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	observer := NewObserver(transport, testStatusTopic, 1, nil)
	if err := observer.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return observer, transport
}

func TestAwaitLive_LiveObservationSignals(t *testing.T) {
	observer, transport := newTestObserver(t)

	observer.Arm()
	transport.deliver(t, testStatusTopic, "1", false)

	obs, err := observer.AwaitLive(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitLive() error = %v", err)
	}
	if obs.State != StateOn {
		t.Errorf("AwaitLive() state = %v, want StateOn", obs.State)
	}
	if obs.Retained {
		t.Error("AwaitLive() returned a retained observation")
	}
}

func TestAwaitLive_NewestUnconsumedSignalWins(t *testing.T) {
	observer, transport := newTestObserver(t)

	// Two live messages arrive before the waiter gets to read. The slot
	// must hold the second one; the first is superseded, not preserved.
	observer.Arm()
	transport.deliver(t, testStatusTopic, "1", false)
	transport.deliver(t, testStatusTopic, "0", false)

	obs, err := observer.AwaitLive(context.Background(), 100*time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitLive() error = %v", err)
	}
	if obs.State != StateOff {
		t.Errorf("AwaitLive() state = %v, want StateOff (newest live message)", obs.State)
	}
}

func TestAwaitLive_RetainedNeverSignals(t *testing.T) {
	observer, transport := newTestObserver(t)

	observer.Arm()
	transport.deliver(t, testStatusTopic, "0", true)

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("AwaitLive() error = %v, want ErrWaitTimeout", err)
	}

	// The retained value is still recorded as last known.
	obs, ok := observer.LastKnown()
	if !ok {
		t.Fatal("LastKnown() ok = false, want true")
	}
	if obs.State != StateOff || !obs.Retained {
		t.Errorf("LastKnown() = %+v, want retained StateOff", obs)
	}
}

func TestAwaitLive_StaleSignalDiscardedByArm(t *testing.T) {
	observer, transport := newTestObserver(t)

	// A live message arrives, then the observer is armed for a new wait.
	// The earlier message must not satisfy it.
	observer.Arm()
	transport.deliver(t, testStatusTopic, "1", false)
	observer.Arm()

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("AwaitLive() after re-arm error = %v, want ErrWaitTimeout", err)
	}
}

func TestAwaitLive_LiveBeforeArmDoesNotSignal(t *testing.T) {
	observer, transport := newTestObserver(t)

	transport.deliver(t, testStatusTopic, "1", false)
	observer.Arm()

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("AwaitLive() error = %v, want ErrWaitTimeout", err)
	}
}

func TestAwaitLive_NotArmed(t *testing.T) {
	observer, _ := newTestObserver(t)

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrNotArmed) {
		t.Errorf("AwaitLive() error = %v, want ErrNotArmed", err)
	}
}

func TestAwaitLive_DisarmClearsWaitState(t *testing.T) {
	observer, _ := newTestObserver(t)

	observer.Arm()
	observer.Disarm()

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrNotArmed) {
		t.Errorf("AwaitLive() after Disarm error = %v, want ErrNotArmed", err)
	}
}

func TestAwaitLive_ContextCancelled(t *testing.T) {
	observer, _ := newTestObserver(t)

	observer.Arm()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := observer.AwaitLive(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("AwaitLive() error = %v, want context.Canceled", err)
	}
}

func TestHandleMessage_MalformedDiscarded(t *testing.T) {
	observer, transport := newTestObserver(t)

	observer.Arm()
	transport.deliver(t, testStatusTopic, "banana", false)

	_, err := observer.AwaitLive(context.Background(), 20*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("AwaitLive() error = %v, want ErrWaitTimeout (malformed must not signal)", err)
	}

	if _, ok := observer.LastKnown(); ok {
		t.Error("LastKnown() recorded a malformed observation")
	}
}

func TestLastKnown_LatestWins(t *testing.T) {
	observer, transport := newTestObserver(t)

	transport.deliver(t, testStatusTopic, "0", true)
	transport.deliver(t, testStatusTopic, "1", false)

	obs, ok := observer.LastKnown()
	if !ok {
		t.Fatal("LastKnown() ok = false, want true")
	}
	if obs.State != StateOn || obs.Retained {
		t.Errorf("LastKnown() = %+v, want live StateOn", obs)
	}
}
