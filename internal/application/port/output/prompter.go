package output

import (
	"context"

	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
)

// ReviewOutcome is one user decision from the plan review prompt
type ReviewOutcome struct {
	Decision     group.ReviewDecision
	Modification string // free-text modification when Decision is modify
}

// DecisionPrompter is the synchronous user-interaction boundary.
// Modeling the review loop as explicit request/response steps keeps the
// state machine trivially resumable; any async transport (chat, IDE)
// adapts to this interface outside the core.
type DecisionPrompter interface {
	// DecideGate presents the three-way complexity gate decision
	DecideGate(ctx context.Context, score, threshold int, rationale string) (group.GateDecision, error)

	// DecideReview presents a consolidated plan for accept/modify/reject.
	// modificationsLeft tells the user how many modify cycles remain.
	DecideReview(ctx context.Context, plan *group.ConsolidatedPlan, modificationsLeft int) (ReviewOutcome, error)

	// DecideForced presents the terminal accept/reject choice after the
	// modification cap is exhausted; modify is not offered
	DecideForced(ctx context.Context, plan *group.ConsolidatedPlan) (group.ReviewDecision, error)

	// RequestModifiedInput asks for a modified original request during a
	// strategic restart; empty response keeps the current request
	RequestModifiedInput(ctx context.Context, currentRequest string) (string, error)
}
