package mode

import (
	"testing"
	"time"
)

func TestModeTimeout(t *testing.T) {
	m := &Mode{Name: "focus", TimeoutSeconds: 300}
	if !m.HasTimeout() {
		t.Error("expected timeout")
	}
	if got := m.Timeout(); got != 5*time.Minute {
		t.Errorf("Timeout: got %v", got)
	}

	none := &Mode{Name: "default"}
	if none.HasTimeout() {
		t.Error("expected no timeout")
	}
	if got := none.Timeout(); got != 0 {
		t.Errorf("Timeout: got %v, want 0", got)
	}
}

func TestModePollInterval(t *testing.T) {
	tests := []struct {
		name  string
		hertz float64
		want  time.Duration
	}{
		{"one hertz", 1, time.Second},
		{"four hertz", 4, 250 * time.Millisecond},
		{"half hertz", 0.5, 2 * time.Second},
		{"unset falls back", 0, time.Second},
		{"negative falls back", -2, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mode{Hertz: tt.hertz}
			if got := m.PollInterval(); got != tt.want {
				t.Errorf("PollInterval: got %v, want %v", got, tt.want)
			}
		})
	}
}
