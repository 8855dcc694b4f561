// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"
)

const (
	// PhaseIdle means no run has started since construction or the last restore.
	PhaseIdle Phase = iota
	// PhaseStarting means the run was accepted and the process is being spawned.
	PhaseStarting
	// PhaseRunning means the process is running and its output is being pumped.
	PhaseRunning
	// PhaseCompleted means the process exited and the run was finalized.
	PhaseCompleted
	// PhaseCancelled means the user cancelled the run.
	PhaseCancelled
	// PhaseFailedToStart means the process could not be spawned.
	PhaseFailedToStart
)

// ErrInvalidPhase is the sentinel error wrapped by InvalidPhaseError.
var ErrInvalidPhase = errors.New("invalid phase")

type (
	// Phase is the lifecycle position of the engine's current run.
	Phase int32

	// InvalidPhaseError is returned when a Phase value is not recognized.
	// It wraps ErrInvalidPhase for errors.Is() compatibility.
	InvalidPhaseError struct {
		Value Phase
	}
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailedToStart:
		return "failed-to-start"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// Validate returns nil if the Phase is one of the defined values,
// or an error wrapping ErrInvalidPhase if it is not.
func (p Phase) Validate() error {
	switch p {
	case PhaseIdle, PhaseStarting, PhaseRunning, PhaseCompleted, PhaseCancelled, PhaseFailedToStart:
		return nil
	default:
		return &InvalidPhaseError{Value: p}
	}
}

// IsTerminal returns true if the phase ends a run.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled || p == PhaseFailedToStart
}

// IsActive returns true while a run occupies the engine.
func (p Phase) IsActive() bool {
	return p == PhaseStarting || p == PhaseRunning
}

// Error implements the error interface.
func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("invalid phase %d (valid: 0-5)", int32(e.Value))
}

// Unwrap returns ErrInvalidPhase so callers can use errors.Is for programmatic detection.
func (e *InvalidPhaseError) Unwrap() error { return ErrInvalidPhase }
