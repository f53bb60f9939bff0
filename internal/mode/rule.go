package mode

import (
	"strings"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// TransitionType classifies what kind of trigger a rule responds to.
type TransitionType string

const (
	TransitionManual         TransitionType = "manual"
	TransitionInputTriggered TransitionType = "input_triggered"
	TransitionTimeout        TransitionType = "timeout"
)

// TransitionTypeForEvent maps a trigger event to the rule type it can match.
func TransitionTypeForEvent(t events.EventType) (TransitionType, bool) {
	switch t {
	case events.EventTriggerKeyword:
		return TransitionInputTriggered, true
	case events.EventTriggerTimeout:
		return TransitionTimeout, true
	case events.EventTriggerManual, events.EventTriggerSchedule:
		return TransitionManual, true
	}
	return "", false
}

// TransitionRule describes one declarative mode transition. Rules are static;
// the per-rule last-fired timestamp is tracked by the manager, keyed by the
// rule's position in the declaration order.
type TransitionRule struct {
	From            string         `json:"from_mode"`
	To              string         `json:"to_mode"`
	Type            TransitionType `json:"transition_type"`
	Keywords        []string       `json:"trigger_keywords,omitempty"`
	Priority        int            `json:"priority"`
	CooldownSeconds int            `json:"cooldown_seconds,omitempty"`
}

// Cooldown returns the rule cooldown as a duration, or zero if none.
func (r *TransitionRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownSeconds) * time.Second
}

// AppliesFrom reports whether the rule can fire from the given mode.
func (r *TransitionRule) AppliesFrom(current string) bool {
	return r.From == Wildcard || r.From == current
}

// MatchesEvent reports whether an input-triggered rule's keywords match the
// event. Keywords are case-insensitive substrings of the event text; a
// pre-extracted keyword list on the event is also checked.
func (r *TransitionRule) MatchesEvent(e events.Event) bool {
	if len(r.Keywords) == 0 {
		return false
	}

	text := strings.ToLower(e.Text())
	extracted := e.Keywords()

	for _, kw := range r.Keywords {
		lkw := strings.ToLower(kw)
		if text != "" && strings.Contains(text, lkw) {
			return true
		}
		for _, ext := range extracted {
			if strings.Contains(strings.ToLower(ext), lkw) {
				return true
			}
		}
	}
	return false
}
