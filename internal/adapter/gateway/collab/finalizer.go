package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// Finalizer implements FinalizerGateway over an AgentGateway
type Finalizer struct {
	agent   output.AgentGateway
	timeout time.Duration
}

// NewFinalizer creates the finalization collaborator
func NewFinalizer(agent output.AgentGateway, timeout time.Duration) *Finalizer {
	return &Finalizer{agent: agent, timeout: timeout}
}

// Finalize commits the validated changes for the task. Errors are
// surfaced as-is; the caller treats them as fatal.
func (f *Finalizer) Finalize(ctx context.Context, taskID string, planIDs []string) error {
	prompt := fmt.Sprintf(`All generated changes for task %s passed validation.
Commit the workspace changes with a message summarizing the implemented plans (%s).
Do not push.`, taskID, strings.Join(planIDs, ", "))

	resp, err := f.agent.Execute(ctx, output.AgentRequest{
		Role:    output.RoleFinalizer,
		Prompt:  prompt,
		Timeout: f.timeout,
		Context: map[string]string{"task_id": taskID},
	})
	if err != nil {
		return fmt.Errorf("finalizer agent: %w", err)
	}
	if strings.TrimSpace(resp.Output) == "" {
		return fmt.Errorf("finalizer agent returned no confirmation")
	}
	return nil
}
