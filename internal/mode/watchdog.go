package mode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// DefaultWatchdogInterval is how often the watchdog checks for mode timeouts.
const DefaultWatchdogInterval = time.Second

// Watchdog periodically checks whether the active mode has exceeded its
// timeout and synthesizes a timeout trigger event when it has. The event is
// submitted exactly like any other trigger, so timeout transitions go
// through the same rule engine and guard.
type Watchdog struct {
	manager  *Manager
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatchdog creates a watchdog over the manager. A non-positive interval
// falls back to DefaultWatchdogInterval.
func NewWatchdog(m *Manager, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = DefaultWatchdogInterval
	}
	return &Watchdog{
		manager:  m,
		interval: interval,
	}
}

// Start begins the periodic timeout check in a background goroutine.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return // already running
	}

	w.done = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	slog.Info("timeout watchdog started", "interval", w.interval)
}

// Stop halts the watchdog and waits for the loop to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return
	}

	w.cancel()
	<-w.done
	w.cancel = nil
}

func (w *Watchdog) tick(ctx context.Context) {
	st := w.manager.Status()
	if st.Transitioning {
		return
	}

	now := time.Now()
	remaining, ok := st.TimeRemaining(now)
	if !ok || remaining > 0 {
		return
	}

	ev := events.NewEvent(events.EventTriggerTimeout, events.SourceWatchdog, map[string]any{
		"mode":            st.CurrentMode,
		"elapsed_seconds": now.Sub(st.EnteredAt).Seconds(),
	})

	if _, err := w.manager.HandleEvent(ctx, ev); err != nil {
		// Guard contention resolves itself on the next tick.
		if !errors.Is(err, ErrTransitionInProgress) {
			slog.Warn("timeout transition failed", "mode", st.CurrentMode, "error", err)
		}
	}
}
