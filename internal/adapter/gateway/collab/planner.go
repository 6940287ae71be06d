package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
)

// Planner implements PlannerGateway over an AgentGateway
type Planner struct {
	agent   output.AgentGateway
	timeout time.Duration
}

// NewPlanner creates the planning collaborator
func NewPlanner(agent output.AgentGateway, timeout time.Duration) *Planner {
	return &Planner{agent: agent, timeout: timeout}
}

// Plan decomposes the request into feature groups
func (p *Planner) Plan(ctx context.Context, request string) (*output.Decomposition, error) {
	prompt := fmt.Sprintf(`Decompose the following development request into independent feature groups.
Each group must cover exactly one concern and be reviewable on its own.
Also rate the overall complexity of the request from 0 to 10 and set
complexity_flag to true if the request should be split into separate tasks.

Request:
%s

Respond with JSON only:
{"groups":[{"description":"..."}],"complexity_score":0,"complexity_flag":false,"rationale":"..."}`, request)

	resp, err := p.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RolePlanner,
		Prompt:  prompt,
		Timeout: p.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("planner agent: %w", err)
	}

	var dec output.Decomposition
	if err := decodeJSON(resp.Output, &dec); err != nil {
		return nil, err
	}
	return &dec, nil
}

// GenerateArtifact produces one plan artifact for a group
func (p *Planner) GenerateArtifact(ctx context.Context, req output.ArtifactRequest) (string, error) {
	var b strings.Builder
	switch req.Kind {
	case output.ArtifactArchitecture:
		b.WriteString("Write an architecture review for the feature group below: affected components, interfaces, data flow, and risks.\n")
	case output.ArtifactImplementation:
		b.WriteString("Write a step-by-step implementation plan for the feature group below, consistent with its architecture review.\n")
	case output.ArtifactTests:
		b.WriteString("Write a test plan for the feature group below, covering the risks called out in the architecture review.\n")
	default:
		return "", fmt.Errorf("unknown artifact kind %q", req.Kind)
	}

	fmt.Fprintf(&b, "\nOriginal request:\n%s\n\nFeature group:\n%s\n", req.Request, req.Group.Description)
	if req.Group.ArchitectureReview != "" && req.Kind != output.ArtifactArchitecture {
		fmt.Fprintf(&b, "\nArchitecture review:\n%s\n", req.Group.ArchitectureReview)
	}
	if req.Kind == output.ArtifactTests && req.Group.ImplementationPlan != "" {
		fmt.Fprintf(&b, "\nImplementation plan:\n%s\n", req.Group.ImplementationPlan)
	}
	if req.Modification != "" {
		fmt.Fprintf(&b, "\nThe reviewer requested this modification; rework the artifact accordingly:\n%s\n", req.Modification)
	}

	resp, err := p.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RoleArtifact,
		Prompt:  b.String(),
		Timeout: p.timeout,
		Context: map[string]string{"artifact": string(req.Kind), "group_id": req.Group.GroupID},
	})
	if err != nil {
		return "", fmt.Errorf("artifact agent: %w", err)
	}
	if strings.TrimSpace(resp.Output) == "" {
		return "", fmt.Errorf("agent returned an empty %s artifact", req.Kind)
	}
	return resp.Output, nil
}

// ValidatePlan runs all plan validations over the group's artifacts
func (p *Planner) ValidatePlan(ctx context.Context, g *group.FeatureGroup) (*group.ValidationReport, error) {
	prompt := fmt.Sprintf(`Validate the plan artifacts below. Check:
1. architecture-implementation consistency
2. test coverage against the risks in the architecture review
3. semantic coherence of the whole plan, scored 0-10, with issues split
   into critical and minor

Architecture review:
%s

Implementation plan:
%s

Test plan:
%s

Respond with JSON only:
{"coherence":{"score":0,"critical_issues":[],"minor_issues":[]},"consistency_ok":true,"consistency_issues":[],"coverage_ok":true,"coverage_issues":[]}`,
		g.ArchitectureReview, g.ImplementationPlan, g.Tests)

	resp, err := p.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RolePlanValidator,
		Prompt:  prompt,
		Timeout: p.timeout,
		Context: map[string]string{"group_id": g.GroupID},
	})
	if err != nil {
		return nil, fmt.Errorf("plan validator agent: %w", err)
	}

	var report group.ValidationReport
	if err := decodeJSON(resp.Output, &report); err != nil {
		return nil, err
	}
	if report.Coherence.Score < 0 || report.Coherence.Score > 10 {
		return nil, fmt.Errorf("coherence score %d out of range", report.Coherence.Score)
	}
	return &report, nil
}
