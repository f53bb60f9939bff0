package mode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget means a transition points at a mode that does not exist.
	ErrInvalidTarget = errors.New("transition target mode does not exist")

	// ErrTransitionInProgress means the guard is held by another transition.
	// Callers retry after the in-flight transition completes.
	ErrTransitionInProgress = errors.New("transition already in progress")

	// ErrManualSwitchingDisabled means manual switches are turned off in config.
	ErrManualSwitchingDisabled = errors.New("manual mode switching is disabled")

	// ErrReloadConflict means a config reload raced an in-flight transition.
	ErrReloadConflict = errors.New("config reload conflicts with in-flight transition")

	// ErrUnknownMode means a mode name does not appear in the active mode map.
	ErrUnknownMode = errors.New("unknown mode")
)

// HookPhase identifies where in a transition a lifecycle hook ran.
type HookPhase string

const (
	PhaseExit   HookPhase = "exit"
	PhaseEnter  HookPhase = "enter"
	PhaseGlobal HookPhase = "global"
)

// HookError reports a lifecycle hook failure. An exit-phase failure aborts
// the transition; enter- and global-phase failures are surfaced but the mode
// swap stands.
type HookError struct {
	Phase HookPhase
	Hook  string
	Mode  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q on mode %q: %v", e.Phase, e.Hook, e.Mode, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
