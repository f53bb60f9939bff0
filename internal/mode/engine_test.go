package mode

import (
	"testing"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

func keywordEvent(text string) events.Event {
	return events.NewEvent(events.EventTriggerKeyword, events.SourceMatcher, map[string]any{"text": text})
}

func timeoutEvent(modeName string) events.Event {
	return events.NewEvent(events.EventTriggerTimeout, events.SourceWatchdog, map[string]any{"mode": modeName})
}

func TestSelectRule_BasicKeywordMatch(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "default", To: "active", Type: TransitionInputTriggered, Keywords: []string{"activate"}, Priority: 1},
	})

	rule, idx := engine.SelectRule("default", keywordEvent("please activate now"), nil, time.Now())
	if rule == nil {
		t.Fatal("expected a match")
	}
	if idx != 0 || rule.To != "active" {
		t.Errorf("got rule %d -> %s, want 0 -> active", idx, rule.To)
	}
}

func TestSelectRule_CaseInsensitiveSubstring(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "default", To: "active", Type: TransitionInputTriggered, Keywords: []string{"ACTIVATE"}, Priority: 1},
	})

	rule, _ := engine.SelectRule("default", keywordEvent("reACTIVATEd"), nil, time.Now())
	if rule == nil {
		t.Fatal("expected case-insensitive substring match")
	}
}

func TestSelectRule_WrongFromMode(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "conversational", To: "active", Type: TransitionInputTriggered, Keywords: []string{"activate"}, Priority: 1},
	})

	rule, _ := engine.SelectRule("default", keywordEvent("activate"), nil, time.Now())
	if rule != nil {
		t.Errorf("expected no match from mode %q, got rule to %s", "default", rule.To)
	}
}

func TestSelectRule_WildcardFromAnyMode(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: Wildcard, To: "default", Type: TransitionInputTriggered, Keywords: []string{"reset"}, Priority: 5},
	})

	for _, current := range []string{"default", "active", "emergency"} {
		rule, _ := engine.SelectRule(current, keywordEvent("reset"), nil, time.Now())
		if rule == nil {
			t.Errorf("wildcard rule did not match from %q", current)
		}
	}
}

func TestSelectRule_WildcardPriorityBeatsSpecific(t *testing.T) {
	// A high-priority wildcard rule wins over a low-priority rule from the
	// current specific mode, regardless of starting mode.
	engine := NewEngine([]TransitionRule{
		{From: "active", To: "conversational", Type: TransitionInputTriggered, Keywords: []string{"reset"}, Priority: 1},
		{From: Wildcard, To: "default", Type: TransitionInputTriggered, Keywords: []string{"reset"}, Priority: 5},
	})

	rule, _ := engine.SelectRule("active", keywordEvent("reset"), nil, time.Now())
	if rule == nil {
		t.Fatal("expected a match")
	}
	if rule.To != "default" {
		t.Errorf("got transition to %s, want wildcard winner default", rule.To)
	}
}

func TestSelectRule_TieBreakByDeclarationOrder(t *testing.T) {
	base := []TransitionRule{
		{From: "default", To: "first", Type: TransitionInputTriggered, Keywords: []string{"go"}, Priority: 3},
		{From: "default", To: "second", Type: TransitionInputTriggered, Keywords: []string{"go"}, Priority: 3},
	}

	// Unrelated rules around the tied pair must not change the outcome.
	permutations := [][]TransitionRule{
		base,
		{{From: "other", To: "first", Type: TransitionTimeout, Priority: 9}, base[0], base[1]},
		{base[0], {From: "other", To: "first", Type: TransitionTimeout, Priority: 9}, base[1]},
		{base[0], base[1], {From: "other", To: "first", Type: TransitionTimeout, Priority: 9}},
	}

	for i, rules := range permutations {
		engine := NewEngine(rules)
		rule, _ := engine.SelectRule("default", keywordEvent("go"), nil, time.Now())
		if rule == nil {
			t.Fatalf("permutation %d: expected a match", i)
		}
		if rule.To != "first" {
			t.Errorf("permutation %d: got %s, want first-declared rule", i, rule.To)
		}
	}
}

func TestSelectRule_CooldownExcludes(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "default", To: "active", Type: TransitionInputTriggered, Keywords: []string{"activate"}, Priority: 1, CooldownSeconds: 5},
	})

	now := time.Now()
	lastFired := map[int]time.Time{0: now.Add(-2 * time.Second)}

	if rule, _ := engine.SelectRule("default", keywordEvent("activate"), lastFired, now); rule != nil {
		t.Error("expected rule in cooldown to be excluded")
	}

	lastFired[0] = now.Add(-6 * time.Second)
	if rule, _ := engine.SelectRule("default", keywordEvent("activate"), lastFired, now); rule == nil {
		t.Error("expected rule past cooldown to match again")
	}
}

func TestSelectRule_CooldownFallsThroughToLowerPriority(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "default", To: "active", Type: TransitionInputTriggered, Keywords: []string{"go"}, Priority: 5, CooldownSeconds: 60},
		{From: "default", To: "conversational", Type: TransitionInputTriggered, Keywords: []string{"go"}, Priority: 1},
	})

	now := time.Now()
	lastFired := map[int]time.Time{0: now.Add(-time.Second)}

	rule, _ := engine.SelectRule("default", keywordEvent("go"), lastFired, now)
	if rule == nil {
		t.Fatal("expected the lower-priority rule to match")
	}
	if rule.To != "conversational" {
		t.Errorf("got %s, want conversational", rule.To)
	}
}

func TestSelectRule_TimeoutEvent(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "active", To: "default", Type: TransitionTimeout, Priority: 1},
		{From: "active", To: "emergency", Type: TransitionInputTriggered, Keywords: []string{"help"}, Priority: 9},
	})

	rule, _ := engine.SelectRule("active", timeoutEvent("active"), nil, time.Now())
	if rule == nil {
		t.Fatal("expected timeout rule to match")
	}
	if rule.To != "default" {
		t.Errorf("got %s, want default", rule.To)
	}
}

func TestSelectRule_ExtractedKeywords(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: "default", To: "active", Type: TransitionInputTriggered, Keywords: []string{"wake"}, Priority: 1},
	})

	ev := events.NewEvent(events.EventTriggerKeyword, events.SourceMatcher, map[string]any{
		"keywords": []string{"Wake", "up"},
	})

	rule, _ := engine.SelectRule("default", ev, nil, time.Now())
	if rule == nil {
		t.Fatal("expected match against extracted keyword list")
	}
}

func TestSelectRule_NonTriggerEvent(t *testing.T) {
	engine := NewEngine([]TransitionRule{
		{From: Wildcard, To: "default", Type: TransitionInputTriggered, Keywords: []string{"reset"}, Priority: 1},
	})

	ev := events.NewEvent(events.EventModeChanged, events.SourceManager, map[string]any{"text": "reset"})
	if rule, _ := engine.SelectRule("default", ev, nil, time.Now()); rule != nil {
		t.Error("expected no match for a non-trigger event")
	}
}
