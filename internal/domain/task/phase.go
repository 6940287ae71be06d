package task

// Phase represents a stage of the task lifecycle. Every phase has its
// own entry snapshot; resumption re-enters the recorded phase handler.
type Phase string

const (
	PhasePrePlanning       Phase = "pre_planning"
	PhaseComplexityGate    Phase = "complexity_gate"
	PhaseGroupProcessing   Phase = "group_processing"
	PhaseCodeGenValidation Phase = "codegen_validation"
	PhaseFinalization      Phase = "finalization"
	PhaseCompleted         Phase = "completed"
	PhaseFailed            Phase = "failed"
	PhaseCancelled         Phase = "cancelled"
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if this phase represents a final state
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// IsValid returns true if the phase is a recognized lifecycle phase
func (p Phase) IsValid() bool {
	switch p {
	case PhasePrePlanning, PhaseComplexityGate, PhaseGroupProcessing,
		PhaseCodeGenValidation, PhaseFinalization,
		PhaseCompleted, PhaseFailed, PhaseCancelled:
		return true
	default:
		return false
	}
}

// Ordinal returns the position of the phase in the forward sequence.
// Terminal phases share the highest ordinal; unknown phases return 0.
func (p Phase) Ordinal() int {
	switch p {
	case PhasePrePlanning:
		return 1
	case PhaseComplexityGate:
		return 2
	case PhaseGroupProcessing:
		return 3
	case PhaseCodeGenValidation:
		return 4
	case PhaseFinalization:
		return 5
	case PhaseCompleted, PhaseFailed, PhaseCancelled:
		return 6
	default:
		return 0
	}
}

// CanTransitionTo validates if transition to the next phase is allowed.
// The sequence is strictly forward; a task never regresses to an earlier
// phase except through explicit user-initiated modification, which is
// handled inside the group review loop, not here.
func (p Phase) CanTransitionTo(next Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhasePrePlanning:       {PhaseComplexityGate, PhaseFailed, PhaseCancelled},
		PhaseComplexityGate:    {PhaseGroupProcessing, PhaseFailed, PhaseCancelled},
		PhaseGroupProcessing:   {PhaseCodeGenValidation, PhaseFailed, PhaseCancelled},
		PhaseCodeGenValidation: {PhaseFinalization, PhaseFailed, PhaseCancelled},
		PhaseFinalization:      {PhaseCompleted, PhaseFailed},
		PhaseCompleted:         {},
		PhaseFailed:            {},
		PhaseCancelled:         {},
	}

	allowed, exists := validTransitions[p]
	if !exists {
		return false
	}

	for _, validNext := range allowed {
		if validNext == next {
			return true
		}
	}

	return false
}

// ParsePhase parses a string into a Phase, returning false for unknown values
func ParsePhase(s string) (Phase, bool) {
	p := Phase(s)
	if !p.IsValid() {
		return "", false
	}
	return p, true
}
