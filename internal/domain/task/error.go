package task

import "errors"

// Domain errors for the task lifecycle
var (
	// ErrInvalidTransition indicates a phase transition outside the table
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrTaskTerminal indicates an operation on a finished task
	ErrTaskTerminal = errors.New("task already reached a terminal status")

	// ErrCorruptState indicates persisted task state that cannot be trusted
	ErrCorruptState = errors.New("corrupt task state")
)
