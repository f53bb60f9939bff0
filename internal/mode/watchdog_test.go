package mode

import (
	"context"
	"testing"
	"time"
)

func TestTimeRemainingClampsToZero(t *testing.T) {
	st := Status{
		CurrentMode:    "active",
		EnteredAt:      time.Now().Add(-45 * time.Second),
		TimeoutSeconds: 30,
	}

	remaining, ok := st.TimeRemaining(time.Now())
	if !ok {
		t.Fatal("expected a timeout to be reported")
	}
	if remaining != 0 {
		t.Errorf("time remaining: got %v, want 0", remaining)
	}
}

func TestTimeRemainingWithoutTimeout(t *testing.T) {
	st := Status{CurrentMode: "default", EnteredAt: time.Now()}

	if _, ok := st.TimeRemaining(time.Now()); ok {
		t.Error("mode without timeout must not report one")
	}
}

func TestTimeRemainingCountsDown(t *testing.T) {
	now := time.Now()
	st := Status{
		CurrentMode:    "active",
		EnteredAt:      now.Add(-10 * time.Second),
		TimeoutSeconds: 30,
	}

	remaining, ok := st.TimeRemaining(now)
	if !ok {
		t.Fatal("expected a timeout to be reported")
	}
	if remaining != 20*time.Second {
		t.Errorf("time remaining: got %v, want 20s", remaining)
	}
}

func TestWatchdogFiresTimeoutTransition(t *testing.T) {
	sys := testSystem()
	m := newTestManager(t, sys, nil)

	// Enter the active mode, then backdate its entry so the 30s timeout has
	// already elapsed.
	if _, err := m.HandleEvent(context.Background(), keywordEvent("activate")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	m.mu.Lock()
	m.enteredAt = time.Now().Add(-45 * time.Second)
	m.publishStatusLocked(false)
	m.mu.Unlock()

	w := NewWatchdog(m, 10*time.Millisecond)
	w.Start()
	defer w.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if m.Status().CurrentMode == "default" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("watchdog never fired; still in %s", m.Status().CurrentMode)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatchdogIdleWithoutTimeout(t *testing.T) {
	m := newTestManager(t, testSystem(), nil)

	// The default mode has no timeout; the watchdog must leave it alone.
	w := NewWatchdog(m, 5*time.Millisecond)
	w.Start()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if st := m.Status(); st.CurrentMode != "default" {
		t.Errorf("watchdog moved a mode without timeout: %s", st.CurrentMode)
	}
}

func TestWatchdogStartStopIdempotent(t *testing.T) {
	m := newTestManager(t, testSystem(), nil)
	w := NewWatchdog(m, 10*time.Millisecond)

	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
