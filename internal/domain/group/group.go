package group

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxModificationAttempts bounds the plan modification loop per group.
// The attempt after the cap forces a terminal accept/reject decision.
const MaxModificationAttempts = 3

// FeatureGroup is a single-concern decomposition unit reviewed and
// approved independently. Created by pre-planning, mutated through the
// review loop, immutable once a disposition is recorded.
type FeatureGroup struct {
	GroupID              string            `json:"group_id"`
	Description          string            `json:"description"`
	ArchitectureReview   string            `json:"architecture_review"`
	ImplementationPlan   string            `json:"implementation_plan"`
	Tests                string            `json:"tests"`
	SemanticValidation   *ValidationReport `json:"semantic_validation_result,omitempty"`
	ModificationAttempts int               `json:"modification_attempts"`
	PlanFileID           string            `json:"plan_file_id,omitempty"`
	Disposition          Disposition       `json:"disposition"`
}

// NewFeatureGroup creates a pending group for the given description
func NewFeatureGroup(description string) *FeatureGroup {
	return &FeatureGroup{
		GroupID:     uuid.New().String(),
		Description: description,
		Disposition: DispositionPending,
	}
}

// CanModify reports whether another modification cycle is allowed
func (g *FeatureGroup) CanModify(cap int) bool {
	if cap <= 0 {
		cap = MaxModificationAttempts
	}
	return g.ModificationAttempts < cap
}

// RecordModification increments the modification counter, failing once
// the cap is reached
func (g *FeatureGroup) RecordModification(cap int) error {
	if !g.CanModify(cap) {
		return fmt.Errorf("%w: %d attempts used", ErrModificationCapReached, g.ModificationAttempts)
	}
	g.ModificationAttempts++
	return nil
}

// Finalize records the group's terminal disposition. A group is
// finalized exactly once.
func (g *FeatureGroup) Finalize(d Disposition, planFileID string) error {
	if g.Disposition != DispositionPending {
		return fmt.Errorf("%w: already %s", ErrGroupFinalized, g.Disposition)
	}
	if !d.IsTerminal() {
		return fmt.Errorf("cannot finalize group with non-terminal disposition %q", d)
	}
	if d == DispositionAccepted && planFileID == "" {
		return fmt.Errorf("accepted group requires a plan file id")
	}
	g.Disposition = d
	g.PlanFileID = planFileID
	return nil
}

// IsFinalized returns true once the group has a terminal disposition
func (g *FeatureGroup) IsFinalized() bool {
	return g.Disposition.IsTerminal()
}
