package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/interface/external/claudecli"
)

// ClaudeCLIGateway implements AgentGateway using the Claude Code CLI.
// This executes `claude -p --output-format json` directly.
type ClaudeCLIGateway struct {
	runner     *claudecli.Runner
	workingDir string // Working directory for claude execution
}

// NewClaudeCLIGateway creates a new Claude CLI gateway
func NewClaudeCLIGateway(bin string, timeout time.Duration) *ClaudeCLIGateway {
	if bin == "" {
		bin = "claude"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &ClaudeCLIGateway{
		runner: &claudecli.Runner{
			Bin:     bin,
			Timeout: timeout,
		},
		workingDir: wd,
	}
}

// Execute runs the Claude CLI with the given request
func (g *ClaudeCLIGateway) Execute(ctx context.Context, req output.AgentRequest) (*output.AgentResponse, error) {
	start := time.Now()

	result, err := g.runner.Run(ctx, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("claude CLI execution failed: %w", err)
	}

	return &output.AgentResponse{
		Output:    result,
		ExitCode:  0,
		Duration:  time.Since(start),
		AgentType: "claude-code-cli",
		Metadata: map[string]string{
			"working_dir": g.workingDir,
			"role":        req.Role,
		},
	}, nil
}

// GetCapability returns the Claude CLI's capabilities
func (g *ClaudeCLIGateway) GetCapability() output.AgentCapability {
	return output.AgentCapability{
		SupportsCodeGeneration: true,
		SupportsReview:         true,
		SupportsTest:           true,
		MaxPromptSize:          200000,
		AgentType:              "claude-code-cli",
	}
}

// HealthCheck verifies if the claude CLI is available
func (g *ClaudeCLIGateway) HealthCheck(ctx context.Context) error {
	testReq := output.AgentRequest{
		Prompt:  "ping",
		Timeout: 10 * time.Second,
	}

	if _, err := g.Execute(ctx, testReq); err != nil {
		return fmt.Errorf("claude CLI health check failed: %w", err)
	}
	return nil
}
