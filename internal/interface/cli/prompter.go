package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/application/service"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
)

// TerminalPrompter implements DecisionPrompter over interactive
// terminal prompts. Ctrl-C anywhere maps to a clean cancellation.
type TerminalPrompter struct{}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

func mapPromptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return service.ErrUserCancelled
	}
	return err
}

// DecideGate presents the three-way complexity gate decision
func (p *TerminalPrompter) DecideGate(ctx context.Context, score, threshold int, rationale string) (group.GateDecision, error) {
	fmt.Printf("\nComplexity %d exceeds threshold %d.\n", score, threshold)
	if rationale != "" {
		fmt.Printf("Rationale: %s\n", rationale)
	}

	sel := promptui.Select{
		Label: "This request looks too large for a single task",
		Items: []string{
			"Proceed anyway",
			"Cancel and refine the request",
			"Cancel",
		},
	}
	idx, _, err := sel.Run()
	if err != nil {
		return "", mapPromptErr(err)
	}

	switch idx {
	case 0:
		return group.GateProceed, nil
	case 1:
		return group.GateCancelAndRefine, nil
	default:
		return group.GateCancel, nil
	}
}

// DecideReview presents a consolidated plan for accept/modify/reject
func (p *TerminalPrompter) DecideReview(ctx context.Context, plan *group.ConsolidatedPlan, modificationsLeft int) (output.ReviewOutcome, error) {
	renderPlan(plan)

	items := []string{
		"Accept",
		fmt.Sprintf("Modify (%d left)", modificationsLeft),
		"Reject",
	}
	sel := promptui.Select{
		Label: fmt.Sprintf("Review plan for group %q", plan.Description),
		Items: items,
	}
	idx, _, err := sel.Run()
	if err != nil {
		return output.ReviewOutcome{}, mapPromptErr(err)
	}

	switch idx {
	case 0:
		return output.ReviewOutcome{Decision: group.DecisionAccept}, nil
	case 1:
		prompt := promptui.Prompt{
			Label: "Describe the modification",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("modification cannot be empty")
				}
				return nil
			},
		}
		text, err := prompt.Run()
		if err != nil {
			return output.ReviewOutcome{}, mapPromptErr(err)
		}
		return output.ReviewOutcome{Decision: group.DecisionModify, Modification: text}, nil
	default:
		return output.ReviewOutcome{Decision: group.DecisionReject}, nil
	}
}

// DecideForced presents the terminal accept/reject choice after the
// modification cap; modify is not offered
func (p *TerminalPrompter) DecideForced(ctx context.Context, plan *group.ConsolidatedPlan) (group.ReviewDecision, error) {
	renderPlan(plan)

	sel := promptui.Select{
		Label: "Modification limit reached; accept or reject this plan",
		Items: []string{"Accept", "Reject"},
	}
	_, label, err := sel.Run()
	if err != nil {
		return "", mapPromptErr(err)
	}
	dec, ok := group.ParseReviewDecision(label)
	if !ok {
		return "", fmt.Errorf("unrecognized decision %q", label)
	}
	return dec, nil
}

// RequestModifiedInput asks for a modified original request during a
// strategic restart; empty input keeps the current request
func (p *TerminalPrompter) RequestModifiedInput(ctx context.Context, currentRequest string) (string, error) {
	fmt.Printf("\nRepeated generation failures suggest the request itself needs rework.\nCurrent request:\n%s\n\n", currentRequest)

	prompt := promptui.Prompt{
		Label: "Modified request (empty keeps the current one)",
	}
	text, err := prompt.Run()
	if err != nil {
		return "", mapPromptErr(err)
	}
	return strings.TrimSpace(text), nil
}

func renderPlan(plan *group.ConsolidatedPlan) {
	fmt.Printf("\n=== Plan for %s ===\n", plan.Description)
	fmt.Printf("\n--- Architecture review ---\n%s\n", plan.ArchitectureReview)
	fmt.Printf("\n--- Implementation plan ---\n%s\n", plan.ImplementationPlan)
	fmt.Printf("\n--- Tests ---\n%s\n", plan.Tests)

	v := plan.Validation
	fmt.Printf("\n--- Validation ---\ncoherence: %d/10", v.Coherence.Score)
	if len(v.Coherence.CriticalIssues) > 0 {
		fmt.Printf(" (%d critical)", len(v.Coherence.CriticalIssues))
		for _, issue := range v.Coherence.CriticalIssues {
			fmt.Printf("\n  ! %s", issue)
		}
	}
	fmt.Printf("\nconsistency ok: %v", v.ConsistencyOK)
	for _, issue := range v.ConsistencyIssues {
		fmt.Printf("\n  - %s", issue)
	}
	fmt.Printf("\ncoverage ok: %v", v.CoverageOK)
	for _, issue := range v.CoverageIssues {
		fmt.Printf("\n  - %s", issue)
	}
	fmt.Println()
}

// AutoPrompter implements DecisionPrompter without interaction, used by
// --auto runs and CI. Gate decisions proceed, reviews accept, forced
// decisions reject, and request modifications are skipped.
type AutoPrompter struct{}

func NewAutoPrompter() *AutoPrompter {
	return &AutoPrompter{}
}

func (p *AutoPrompter) DecideGate(ctx context.Context, score, threshold int, rationale string) (group.GateDecision, error) {
	return group.GateProceed, nil
}

func (p *AutoPrompter) DecideReview(ctx context.Context, plan *group.ConsolidatedPlan, modificationsLeft int) (output.ReviewOutcome, error) {
	if plan.Validation.Coherence.HasCritical() {
		return output.ReviewOutcome{Decision: group.DecisionReject}, nil
	}
	return output.ReviewOutcome{Decision: group.DecisionAccept}, nil
}

func (p *AutoPrompter) DecideForced(ctx context.Context, plan *group.ConsolidatedPlan) (group.ReviewDecision, error) {
	return group.DecisionReject, nil
}

func (p *AutoPrompter) RequestModifiedInput(ctx context.Context, currentRequest string) (string, error) {
	return "", nil
}
