package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// Trigger events — inputs to the mode manager.
	EventTriggerKeyword  EventType = "trigger.keyword"
	EventTriggerTimeout  EventType = "trigger.timeout"
	EventTriggerManual   EventType = "trigger.manual"
	EventTriggerSchedule EventType = "trigger.schedule"

	// Mode lifecycle — emitted by the manager for observers.
	EventModeChanged      EventType = "mode.changed"
	EventTransitionFailed EventType = "mode.transition.failed"
	EventConfigReloaded   EventType = "config.reloaded"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceMatcher   EventSource = "matcher"
	SourceWatchdog  EventSource = "watchdog"
	SourceScheduler EventSource = "scheduler"
	SourceOperator  EventSource = "operator"
	SourceManager   EventSource = "manager"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

// IsTrigger reports whether the event is a mode-transition trigger.
func (e Event) IsTrigger() bool {
	switch e.Type {
	case EventTriggerKeyword, EventTriggerTimeout, EventTriggerManual, EventTriggerSchedule:
		return true
	}
	return false
}

// Text returns the free-form text carried by a keyword trigger, if any.
func (e Event) Text() string {
	if s, ok := e.Payload["text"].(string); ok {
		return s
	}
	return ""
}

// Keywords returns the pre-extracted keyword list carried by the event, if any.
func (e Event) Keywords() []string {
	raw, ok := e.Payload["keywords"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// TargetMode returns the explicit target mode carried by manual and schedule
// triggers, if any.
func (e Event) TargetMode() string {
	if s, ok := e.Payload["to_mode"].(string); ok {
		return s
	}
	return ""
}
