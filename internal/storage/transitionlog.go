// Package storage persists mode lifecycle events for audit and debugging.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vigil-agent/vigil/internal/events"
)

// TransitionLogger subscribes to mode lifecycle events and appends them as
// JSONL to a single transitions log.
type TransitionLogger struct {
	dir         string
	bus         *events.Bus
	unsubscribe func()
}

// NewTransitionLogger creates a logger that records mode changes, failed
// transitions, and config reloads under dir.
func NewTransitionLogger(dir string, bus *events.Bus) *TransitionLogger {
	tl := &TransitionLogger{
		dir: dir,
		bus: bus,
	}
	tl.unsubscribe = bus.Subscribe(tl.handleEvent,
		events.EventModeChanged,
		events.EventTransitionFailed,
		events.EventConfigReloaded,
	)
	return tl
}

// Close unsubscribes the logger from the event bus.
func (tl *TransitionLogger) Close() {
	if tl.unsubscribe != nil {
		tl.unsubscribe()
	}
}

func (tl *TransitionLogger) handleEvent(e events.Event) {
	_ = tl.writeEvent(e)
}

func (tl *TransitionLogger) writeEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := filepath.Join(tl.dir, "transitions.jsonl")

	if err := os.MkdirAll(tl.dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
