package runinput

import (
	"fmt"

	"github.com/google/uuid"
)

// StateType is the lifecycle kind of a run state.
type StateType string

const (
	StateScheduled StateType = "SCHEDULED"
	StatePending   StateType = "PENDING"
	StateRunning   StateType = "RUNNING"
	StatePaused    StateType = "PAUSED"
	StateCompleted StateType = "COMPLETED"
	StateFailed    StateType = "FAILED"
	StateCancelled StateType = "CANCELLED"
	StateCrashed   StateType = "CRASHED"
)

// Validate checks if the StateType is a known enum value.
func (st StateType) Validate() error {
	switch st {
	case StateScheduled, StatePending, StateRunning, StatePaused,
		StateCompleted, StateFailed, StateCancelled, StateCrashed:
		return nil
	default:
		return fmt.Errorf("unknown state type: %q", st)
	}
}

// RunState is the slice of a run's state needed to address its input channel.
// PauseKey is minted once per suspension and is only meaningful when Type is
// StatePaused.
type RunState struct {
	Type     StateType `json:"type"`
	Name     string    `json:"name"`
	PauseKey string    `json:"pause_key,omitempty"`
}

// IsPaused reports whether the state represents a suspended run.
func (s RunState) IsPaused() bool {
	return s.Type == StatePaused
}

// Paused returns a paused state with a fresh pause key.
func Paused() RunState {
	return RunState{Type: StatePaused, Name: "Paused", PauseKey: uuid.NewString()}
}

// Suspended returns a paused state named "Suspended" with a fresh pause key.
// Suspended runs release their infrastructure while waiting.
func Suspended() RunState {
	return RunState{Type: StatePaused, Name: "Suspended", PauseKey: uuid.NewString()}
}
