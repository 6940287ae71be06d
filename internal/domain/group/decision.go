package group

import "strings"

// Disposition is the final outcome recorded for a feature group
type Disposition string

const (
	DispositionPending  Disposition = "pending"
	DispositionAccepted Disposition = "accepted"
	DispositionRejected Disposition = "rejected"
	// DispositionAbandoned marks a group dropped after the review loop
	// was force-terminated without acceptance
	DispositionAbandoned Disposition = "abandoned"
)

// String returns the string representation of the disposition
func (d Disposition) String() string {
	return string(d)
}

// IsTerminal returns true for dispositions that finalize the group
func (d Disposition) IsTerminal() bool {
	return d == DispositionAccepted || d == DispositionRejected || d == DispositionAbandoned
}

// ReviewDecision is one user decision in the plan review loop
type ReviewDecision string

const (
	DecisionAccept ReviewDecision = "accept"
	DecisionModify ReviewDecision = "modify"
	DecisionReject ReviewDecision = "reject"
)

// String returns the string representation of the decision
func (d ReviewDecision) String() string {
	return string(d)
}

// IsValid returns true if the decision is recognized
func (d ReviewDecision) IsValid() bool {
	switch d {
	case DecisionAccept, DecisionModify, DecisionReject:
		return true
	default:
		return false
	}
}

// ParseReviewDecision normalizes free-form input into a ReviewDecision
func ParseReviewDecision(s string) (ReviewDecision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "approve", "ok", "yes", "y":
		return DecisionAccept, true
	case "modify", "change", "edit", "m":
		return DecisionModify, true
	case "reject", "no", "n":
		return DecisionReject, true
	default:
		return "", false
	}
}

// GateDecision is the three-way choice offered at the complexity gate
type GateDecision string

const (
	GateProceed         GateDecision = "proceed"
	GateCancelAndRefine GateDecision = "cancel-and-refine"
	GateCancel          GateDecision = "cancel"
)

// String returns the string representation of the gate decision
func (d GateDecision) String() string {
	return string(d)
}

// IsCancel returns true for either cancel path
func (d GateDecision) IsCancel() bool {
	return d == GateCancelAndRefine || d == GateCancel
}

// IsValid returns true if the gate decision is recognized
func (d GateDecision) IsValid() bool {
	switch d {
	case GateProceed, GateCancelAndRefine, GateCancel:
		return true
	default:
		return false
	}
}
