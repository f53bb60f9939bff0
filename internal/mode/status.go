package mode

import "time"

// Status is an immutable snapshot of the mode system, safe to read without
// any lock. The manager republishes it at every observable state change.
type Status struct {
	CurrentMode    string    `json:"current_mode"`
	DisplayName    string    `json:"display_name"`
	PreviousMode   string    `json:"previous_mode,omitempty"`
	EnteredAt      time.Time `json:"entered_at"`
	TimeoutSeconds int       `json:"timeout_seconds,omitempty"`
	Transitioning  bool      `json:"is_transitioning"`
}

// TimeRemaining returns how long until the current mode times out, clamped
// to zero. The second return is false when the mode has no timeout.
func (s Status) TimeRemaining(now time.Time) (time.Duration, bool) {
	if s.TimeoutSeconds <= 0 {
		return 0, false
	}
	remaining := time.Duration(s.TimeoutSeconds)*time.Second - now.Sub(s.EnteredAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
