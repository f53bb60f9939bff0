// Package scheduler publishes cron-timed mode switch triggers onto the
// event bus. The mode manager consumes them like any other trigger, so
// scheduled switches are serialized through the same guard.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vigil-agent/vigil/internal/events"
)

// DefaultCooldown is the minimum interval between two firings of the same
// entry, protecting against duplicate triggers within one cron minute.
const DefaultCooldown = 60 * time.Second

// Entry is one cron-scheduled mode switch.
type Entry struct {
	Cron   *CronExpr
	ToMode string

	lastRun time.Time
}

// Scheduler drives schedule entries on a minute loop.
type Scheduler struct {
	bus *events.Bus

	mu      sync.Mutex
	entries []*Entry

	done chan struct{}
	once sync.Once
}

// New creates a scheduler over the bus with no entries.
func New(bus *events.Bus) *Scheduler {
	return &Scheduler{
		bus:  bus,
		done: make(chan struct{}),
	}
}

// AddEntry registers a schedule entry from a cron spec and target mode.
func (s *Scheduler) AddEntry(cronSpec, toMode string) error {
	if toMode == "" {
		return fmt.Errorf("schedule entry must name a target mode")
	}
	expr, err := ParseCron(cronSpec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &Entry{Cron: expr, ToMode: toMode})
	return nil
}

// Entries returns a snapshot of the schedule table.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, *e)
	}
	return result
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	n := len(s.entries)
	s.mu.Unlock()

	slog.Info("mode scheduler started", "entries", n)
	go s.cronLoop()
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
	slog.Info("mode scheduler stopped")
}

// cronLoop checks entries once a minute, aligned to minute boundaries.
func (s *Scheduler) cronLoop() {
	for {
		now := time.Now()
		next := now.Truncate(time.Minute).Add(time.Minute)

		select {
		case <-time.After(next.Sub(now)):
			s.checkEntries(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) checkEntries(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !e.Cron.Matches(now) {
			continue
		}
		if !e.lastRun.IsZero() && now.Sub(e.lastRun) < DefaultCooldown {
			continue
		}
		e.lastRun = now

		slog.Info("scheduled mode switch triggered", "to", e.ToMode, "cron", e.Cron)
		s.bus.Publish(events.NewEvent(events.EventTriggerSchedule, events.SourceScheduler, map[string]any{
			"to_mode": e.ToMode,
			"cron":    e.Cron.String(),
		}))
	}
}
