package group

import (
	"time"
)

// CoherenceResult is the outcome of the semantic coherence check:
// a single targeted check producing a 0-10 score plus an issue
// classification.
type CoherenceResult struct {
	Score          int      `json:"score"` // 0-10
	CriticalIssues []string `json:"critical_issues"`
	MinorIssues    []string `json:"minor_issues"`
}

// HasCritical returns true if any critical issue was found
func (c CoherenceResult) HasCritical() bool {
	return len(c.CriticalIssues) > 0
}

// ValidationReport aggregates all plan validations. A modification
// always re-runs every check, never a partial subset.
type ValidationReport struct {
	Coherence         CoherenceResult `json:"coherence"`
	ConsistencyOK     bool            `json:"consistency_ok"` // architecture vs implementation
	ConsistencyIssues []string        `json:"consistency_issues,omitempty"`
	CoverageOK        bool            `json:"coverage_ok"` // test coverage vs risk
	CoverageIssues    []string        `json:"coverage_issues,omitempty"`
}

// ConsolidatedPlan is the merged architecture + implementation + tests
// + validation view presented for one decision. Written to
// plans/plan<PlanID>.log only on accept.
type ConsolidatedPlan struct {
	PlanID             string           `json:"plan_id"`
	GroupID            string           `json:"group_id"`
	Description        string           `json:"description"`
	ArchitectureReview string           `json:"architecture_review"`
	ImplementationPlan string           `json:"implementation_plan"`
	Tests              string           `json:"tests"`
	Validation         ValidationReport `json:"validation"`
	CreatedAt          time.Time        `json:"created_at"`
}

// Consolidate assembles the plan view from a reviewed group
func Consolidate(planID string, g *FeatureGroup) *ConsolidatedPlan {
	report := ValidationReport{}
	if g.SemanticValidation != nil {
		report = *g.SemanticValidation
	}
	return &ConsolidatedPlan{
		PlanID:             planID,
		GroupID:            g.GroupID,
		Description:        g.Description,
		ArchitectureReview: g.ArchitectureReview,
		ImplementationPlan: g.ImplementationPlan,
		Tests:              g.Tests,
		Validation:         report,
		CreatedAt:          time.Now().UTC(),
	}
}
