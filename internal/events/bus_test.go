package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventTriggerKeyword)

	bus.Publish(NewEvent(EventTriggerKeyword, SourceMatcher, map[string]any{"text": "activate"}))
	bus.Publish(NewEvent(EventModeChanged, SourceManager, nil))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTriggerKeyword {
		t.Errorf("expected trigger.keyword, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventTriggerKeyword, SourceMatcher, nil))
	bus.Publish(NewEvent(EventModeChanged, SourceManager, nil))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventTriggerKeyword, SourceMatcher, nil))
	time.Sleep(50 * time.Millisecond)
	unsub()
	bus.Publish(NewEvent(EventTriggerKeyword, SourceMatcher, nil))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected 1 event after unsubscribe, got %d", count)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventTriggerKeyword, SourceMatcher, map[string]any{"i": i}))
	}

	evs := rb.Get(10)
	if len(evs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evs))
	}
	// Oldest surviving entry first.
	if evs[0].Payload["i"] != 2 {
		t.Errorf("expected oldest surviving event i=2, got %v", evs[0].Payload["i"])
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(8)
	bus.Close()
	bus.Publish(NewEvent(EventTriggerKeyword, SourceMatcher, nil)) // must not panic
}

func TestEventAccessors(t *testing.T) {
	e := NewEvent(EventTriggerKeyword, SourceMatcher, map[string]any{
		"text":     "wake up",
		"keywords": []any{"wake", 42, "up"},
	})

	if !e.IsTrigger() {
		t.Error("keyword event should be a trigger")
	}
	if e.Text() != "wake up" {
		t.Errorf("text: %q", e.Text())
	}
	kws := e.Keywords()
	if len(kws) != 2 || kws[0] != "wake" || kws[1] != "up" {
		t.Errorf("keywords: %v", kws)
	}

	manual := NewEvent(EventTriggerManual, SourceOperator, map[string]any{"to_mode": "active"})
	if manual.TargetMode() != "active" {
		t.Errorf("target mode: %q", manual.TargetMode())
	}

	info := NewEvent(EventModeChanged, SourceManager, nil)
	if info.IsTrigger() {
		t.Error("mode.changed is not a trigger")
	}
}
