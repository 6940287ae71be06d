package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// MockGateway is an AgentGateway that answers every role with canned,
// well-formed JSON. Used by `--agent mock` and by tests; no external
// process is involved.
type MockGateway struct{}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// Execute returns a canned response for the requested role
func (g *MockGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	var out string
	switch req.Role {
	case output.RolePlanner:
		out = `{"groups":[{"description":"Core implementation"},{"description":"Tests and documentation"}],` +
			`"complexity_score":3,"complexity_flag":false,"rationale":"two independent concerns"}`
	case output.RoleArtifact:
		out = "Mock artifact.\n\nThe component is small enough to implement in one pass."
	case output.RolePlanValidator:
		out = `{"coherence":{"score":9,"critical_issues":[],"minor_issues":[]},` +
			`"consistency_ok":true,"coverage_ok":true}`
	case output.RoleGenerator:
		out = `{"files":["main.go"],"summary":"mock changes applied","applied":true}`
	case output.RoleValidator:
		out = `{"passed":true,"failures":[]}`
	case output.RoleFinalizer:
		out = "finalized"
	default:
		promptPreview := req.Prompt
		if len(promptPreview) > 50 {
			promptPreview = promptPreview[:50] + "..."
		}
		out = fmt.Sprintf("[mock] response for: %s", promptPreview)
	}

	return &output.AgentResponse{
		Output:    out,
		ExitCode:  0,
		Duration:  time.Millisecond,
		AgentType: "mock",
		Metadata: map[string]string{
			"mock": "true",
			"role": req.Role,
		},
	}, nil
}

// GetCapability returns the mock's capabilities
func (g *MockGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsCodeGeneration: true,
		SupportsReview:         true,
		SupportsTest:           true,
		MaxPromptSize:          32000,
		AgentType:              "mock",
	}
}

// HealthCheck always returns success for the mock
func (g *MockGateway) HealthCheck(ctx context.Context) error {
	return nil
}
