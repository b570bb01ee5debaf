package payplan

import (
	"sync"

	"github.com/google/uuid"
)

// ScheduleState is the lifecycle of a subject's schedule as seen by this process
type ScheduleState string

const (
	StateAbsent        ScheduleState = "absent"        // no record loaded yet
	StateMaterializing ScheduleState = "materializing" // generating from extracted terms
	StateReady         ScheduleState = "ready"         // loaded and healed
	StateEditing       ScheduleState = "editing"       // an operator opened the editor
	StateRecreating    ScheduleState = "recreating"    // wiping and regenerating
	StateFailed        ScheduleState = "failed"        // last store operation failed
)

// String returns the string representation of ScheduleState
func (s ScheduleState) String() string {
	return string(s)
}

// StateTracker remembers the last state per subject. It is advisory only:
// nothing is locked and other processes keep their own view.
type StateTracker struct {
	mu     sync.RWMutex
	states map[uuid.UUID]ScheduleState
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{states: make(map[uuid.UUID]ScheduleState)}
}

// Get returns the state of a subject, Absent when never seen
func (t *StateTracker) Get(subjectID uuid.UUID) ScheduleState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[subjectID]; ok {
		return s
	}
	return StateAbsent
}

// Set records a new state
func (t *StateTracker) Set(subjectID uuid.UUID, state ScheduleState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[subjectID] = state
}

// Forget drops a subject, returning it to Absent
func (t *StateTracker) Forget(subjectID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, subjectID)
}
