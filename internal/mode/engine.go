package mode

import (
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// Engine selects transition rules for trigger events. It is pure: all
// mutable inputs (current mode, last-fired timestamps, the clock) are passed
// in by the caller, so selection is safe without holding any lock.
type Engine struct {
	rules []TransitionRule
}

// NewEngine creates an engine over an ordered rule list. Rule identity is
// the position in this list.
func NewEngine(rules []TransitionRule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the ordered rule list.
func (e *Engine) Rules() []TransitionRule {
	return e.rules
}

// SelectRule returns the best rule for the event from the given mode, and
// its declaration index, or (nil, -1) if nothing matches.
//
// A rule is a candidate when its from-mode equals the current mode or the
// wildcard, its type matches the event kind, its keywords match for
// input-triggered rules, and it is not in cooldown. Among candidates the
// highest priority wins; ties go to the earliest declared rule, so selection
// is deterministic for any permutation of unrelated rules.
func (e *Engine) SelectRule(current string, ev events.Event, lastFired map[int]time.Time, now time.Time) (*TransitionRule, int) {
	kind, ok := TransitionTypeForEvent(ev.Type)
	if !ok {
		return nil, -1
	}

	best := -1
	for i := range e.rules {
		r := &e.rules[i]
		if r.Type != kind || !r.AppliesFrom(current) {
			continue
		}
		if r.Type == TransitionInputTriggered && !r.MatchesEvent(ev) {
			continue
		}
		if inCooldown(r, lastFired[i], now) {
			continue
		}
		if best == -1 || r.Priority > e.rules[best].Priority {
			best = i
		}
	}

	if best == -1 {
		return nil, -1
	}
	return &e.rules[best], best
}

func inCooldown(r *TransitionRule, lastFired time.Time, now time.Time) bool {
	if r.CooldownSeconds <= 0 || lastFired.IsZero() {
		return false
	}
	return now.Sub(lastFired) < r.Cooldown()
}
