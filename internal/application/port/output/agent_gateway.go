package output

import (
	"context"
	"time"
)

// AgentGateway is the interface for AI agent execution.
// This abstraction allows different AI backends (Claude, mock agents)
// and is the only suspension point of the orchestrator.
type AgentGateway interface {
	// Execute runs the agent with given request
	Execute(ctx context.Context, req AgentRequest) (*AgentResponse, error)

	// GetCapability returns the agent's capabilities
	GetCapability() AgentCapability

	// HealthCheck verifies if the agent is available
	HealthCheck(ctx context.Context) error
}

// Agent roles used by the collaborator gateways
const (
	RolePlanner       = "planner"
	RoleArtifact      = "artifact"
	RolePlanValidator = "plan_validator"
	RoleGenerator     = "generator"
	RoleValidator     = "validator"
	RoleFinalizer     = "finalizer"
)

// AgentRequest represents a request to an AI agent
type AgentRequest struct {
	Role    string            // planner, generator, validator
	Prompt  string            // The prompt to send to the agent
	Timeout time.Duration     // Execution timeout
	Context map[string]string // Additional context information
}

// AgentResponse represents the response from an AI agent
type AgentResponse struct {
	Output    string            // Generated output
	ExitCode  int               // Exit code (for CLI-based agents)
	Duration  time.Duration     // Execution duration
	AgentType string            // Type of agent that executed
	Metadata  map[string]string // Additional metadata
}

// AgentCapability describes what an agent can do
type AgentCapability struct {
	SupportsCodeGeneration bool   // Can generate code
	SupportsReview         bool   // Can review plans
	SupportsTest           bool   // Can generate tests
	MaxPromptSize          int    // Maximum prompt size in bytes
	AgentType              string // Agent type identifier
}
