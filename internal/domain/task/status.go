package task

// Status represents the high-level status of a task
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the task will not run again
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StatusForPhase maps a phase to the task status it implies
func StatusForPhase(p Phase) Status {
	switch p {
	case PhaseCompleted:
		return StatusCompleted
	case PhaseFailed:
		return StatusFailed
	case PhaseCancelled:
		return StatusCancelled
	default:
		return StatusActive
	}
}
