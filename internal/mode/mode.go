// Package mode implements the operating-mode state machine: the rule engine
// that decides when to switch modes, the executor that performs a switch
// under a single-flight guard, and the manager facade wiring them together.
package mode

import "time"

// Wildcard matches any source mode in a transition rule.
const Wildcard = "*"

// Mode is an immutable operating profile. A config change produces a new
// Mode value, never an in-place mutation.
type Mode struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name"`
	Description      string   `json:"description"`
	Hertz            float64  `json:"hertz"`
	TimeoutSeconds   int      `json:"timeout_seconds,omitempty"`
	Inputs           []string `json:"inputs,omitempty"`
	Actions          []string `json:"actions,omitempty"`
	OnEnter          []string `json:"on_enter,omitempty"`
	OnExit           []string `json:"on_exit,omitempty"`
	SystemPromptBase string   `json:"system_prompt_base,omitempty"`
}

// HasTimeout reports whether the mode expires after a fixed duration.
func (m *Mode) HasTimeout() bool {
	return m.TimeoutSeconds > 0
}

// Timeout returns the mode timeout as a duration, or zero if none.
func (m *Mode) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// PollInterval converts the mode's hertz rate into a tick interval.
// Modes without a rate fall back to 1s.
func (m *Mode) PollInterval() time.Duration {
	if m.Hertz <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / m.Hertz)
}
