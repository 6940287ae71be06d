package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// Validator implements ValidatorGateway over an AgentGateway. The agent
// runs the project's lint, type-check and test tooling and reports the
// outcome in a structured form.
type Validator struct {
	agent   output.AgentGateway
	timeout time.Duration
}

// NewValidator creates the validation collaborator
func NewValidator(agent output.AgentGateway, timeout time.Duration) *Validator {
	return &Validator{agent: agent, timeout: timeout}
}

// Run validates the applied changes
func (v *Validator) Run(ctx context.Context, changes *output.Changes) (*output.Report, error) {
	var b strings.Builder
	b.WriteString("Run the project's linter, type checker and test suite over the current workspace.\n")
	if changes != nil && len(changes.Files) > 0 {
		fmt.Fprintf(&b, "\nRecently changed files:\n%s\n", strings.Join(changes.Files, "\n"))
	}
	b.WriteString("\nRespond with JSON only:\n" +
		`{"passed":false,"failures":[{"category":"lint|typecheck|test|build","message":"...","file":"..."}]}`)

	resp, err := v.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RoleValidator,
		Prompt:  b.String(),
		Timeout: v.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("validator agent: %w", err)
	}

	var report output.Report
	if err := decodeJSON(resp.Output, &report); err != nil {
		return nil, err
	}
	if !report.Passed && len(report.Failures) == 0 {
		return nil, fmt.Errorf("validator reported failure without failures")
	}
	return &report, nil
}
