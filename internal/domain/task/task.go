package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID uniquely identifies a task
type ID string

// NewID generates a new task ID
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the string representation of the ID
func (id ID) String() string {
	return string(id)
}

// Task is the orchestrated unit of work. It is created on request
// receipt and mutated only by the coordinator.
type Task struct {
	ID              ID        `json:"id"`
	OriginalRequest string    `json:"original_request"`
	CurrentPhase    Phase     `json:"current_phase"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// New creates a new active task for the given request
func New(request string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:              NewID(),
		OriginalRequest: request,
		CurrentPhase:    PhasePrePlanning,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AdvanceTo moves the task into the next phase after validating the
// transition against the phase table
func (t *Task) AdvanceTo(next Phase) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: task %s is %s", ErrTaskTerminal, t.ID, t.Status)
	}
	if !t.CurrentPhase.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.CurrentPhase, next)
	}
	t.CurrentPhase = next
	t.Status = StatusForPhase(next)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Rehydrate rebuilds a task from persisted snapshot fields without
// transition validation; the snapshot is the source of truth on resume
func Rehydrate(id ID, request string, phase Phase, status Status, createdAt, updatedAt time.Time) (*Task, error) {
	if !phase.IsValid() {
		return nil, fmt.Errorf("%w: unknown phase %q", ErrCorruptState, phase)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrCorruptState, status)
	}
	return &Task{
		ID:              id,
		OriginalRequest: request,
		CurrentPhase:    phase,
		Status:          status,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}
