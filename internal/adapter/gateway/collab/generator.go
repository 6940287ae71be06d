package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

// Generator implements GeneratorGateway over an AgentGateway. The agent
// applies changes to the workspace itself; the response reports what was
// touched.
type Generator struct {
	agent   output.AgentGateway
	timeout time.Duration
}

// NewGenerator creates the code generation collaborator
func NewGenerator(agent output.AgentGateway, timeout time.Duration) *Generator {
	return &Generator{agent: agent, timeout: timeout}
}

// Generate runs one code generation attempt
func (g *Generator) Generate(ctx context.Context, req output.GenerateRequest) (*output.Changes, error) {
	var b strings.Builder
	b.WriteString("Implement the accepted plan below by editing the workspace directly.\n")

	fmt.Fprintf(&b, "\nOriginal request:\n%s\n", req.Request)
	if req.Plan != nil {
		fmt.Fprintf(&b, "\nImplementation plan (%s):\n%s\n", req.Plan.PlanID, req.Plan.ImplementationPlan)
		fmt.Fprintf(&b, "\nTests to satisfy:\n%s\n", req.Plan.Tests)
	}

	switch req.Tier {
	case debug.TierQuickFix:
		if len(req.ErrorContext) > 0 {
			fmt.Fprintf(&b, "\nThe previous attempt failed. Fix this error with a minimal targeted change:\n%s\n", req.ErrorContext[len(req.ErrorContext)-1])
			if req.FailingFile != "" {
				fmt.Fprintf(&b, "Failing file: %s\n", req.FailingFile)
			}
		}
	case debug.TierFullDebug:
		b.WriteString("\nPrevious attempts failed. Reason about the root cause across the whole change set before editing. Error history:\n")
		for i, msg := range req.ErrorContext {
			fmt.Fprintf(&b, "%d. %s\n", i+1, msg)
		}
		if len(req.PriorAttempts) > 0 {
			b.WriteString("\nEarlier attempts recorded on this task:\n")
			for _, line := range req.PriorAttempts {
				fmt.Fprintf(&b, "- %s\n", line)
			}
		}
	case debug.TierStrategicRestart:
		fmt.Fprintf(&b, "\nIncremental fixes have not converged. Discard the current implementation and restart using the %s strategy. Error history:\n", req.Strategy)
		for i, msg := range req.ErrorContext {
			fmt.Fprintf(&b, "%d. %s\n", i+1, msg)
		}
	}

	if req.KnownFix != "" {
		fmt.Fprintf(&b, "\nA previously successful fix for this error pattern:\n%s\n", req.KnownFix)
	}

	b.WriteString("\nRespond with JSON only:\n{\"files\":[\"...\"],\"summary\":\"...\",\"applied\":true}")

	resp, err := g.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RoleGenerator,
		Prompt:  b.String(),
		Timeout: g.timeout,
		Context: map[string]string{
			"attempt": fmt.Sprintf("%d", req.Attempt),
			"tier":    req.Tier.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generator agent: %w", err)
	}

	var changes output.Changes
	if err := decodeJSON(resp.Output, &changes); err != nil {
		return nil, err
	}
	if !changes.Applied {
		return nil, fmt.Errorf("agent reported changes not applied: %s", changes.Summary)
	}
	return &changes, nil
}
