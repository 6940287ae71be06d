package agent

import (
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// NewAgentGateway creates an agent gateway based on agent type. An
// empty type selects the default agent.
// Supported types: claude-code-cli, mock.
// Note: the user is responsible for ensuring the agent is available
// (e.g. claude CLI installed).
func NewAgentGateway(agentType, bin string, timeout time.Duration) (output.AgentGateway, error) {
	if agentType == "" {
		agentType = GetDefaultAgent()
	}
	switch agentType {
	case "claude-code-cli":
		return NewClaudeCLIGateway(bin, timeout), nil

	case "mock":
		return NewMockGateway(), nil

	default:
		return nil, fmt.Errorf("unknown agent type: %s (supported: claude-code-cli, mock)", agentType)
	}
}

// GetDefaultAgent returns the default agent type to use
func GetDefaultAgent() string {
	return "claude-code-cli"
}
