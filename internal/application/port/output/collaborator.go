package output

import (
	"context"

	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
)

// Decomposition is the pre-planning result: feature groups plus a
// complexity assessment for the whole request
type Decomposition struct {
	Groups          []GroupSpec `json:"groups"`
	ComplexityScore int         `json:"complexity_score"` // 0-10
	ComplexityFlag  bool        `json:"complexity_flag"`
	Rationale       string      `json:"rationale,omitempty"`
}

// GroupSpec describes one decomposed feature group
type GroupSpec struct {
	Description string `json:"description"`
}

// PlannerGateway is the planning collaborator. Transport, retries and
// circuit breaking live behind this boundary.
type PlannerGateway interface {
	// Plan decomposes the original request into feature groups
	Plan(ctx context.Context, request string) (*Decomposition, error)

	// GenerateArtifact produces one plan artifact for a group
	GenerateArtifact(ctx context.Context, req ArtifactRequest) (string, error)

	// ValidatePlan runs all plan validations: architecture-implementation
	// consistency, test-coverage-vs-risk, and semantic coherence
	ValidatePlan(ctx context.Context, g *group.FeatureGroup) (*group.ValidationReport, error)
}

// ArtifactKind selects which plan artifact to generate
type ArtifactKind string

const (
	ArtifactArchitecture   ArtifactKind = "architecture_review"
	ArtifactImplementation ArtifactKind = "implementation_plan"
	ArtifactTests          ArtifactKind = "tests"
)

// ArtifactRequest carries the inputs for one plan artifact generation
type ArtifactRequest struct {
	Kind         ArtifactKind
	Request      string // original user request
	Group        *group.FeatureGroup
	Modification string // free-text user modification, when re-generating
}

// Changes is the result of one code generation attempt. For CLI-based
// agents the changes are already applied to the workspace; Files lists
// what was touched.
type Changes struct {
	Files   []string `json:"files"`
	Summary string   `json:"summary"`
	Applied bool     `json:"applied"`
}

// GenerateRequest carries the inputs for one code generation attempt
type GenerateRequest struct {
	Request  string                  // original user request
	Plan     *group.ConsolidatedPlan // accepted plan being implemented
	Attempt  int                     // 1-based attempt index
	Tier     debug.Tier              // escalation tier for this attempt
	Strategy debug.RestartStrategy   // set for strategic restarts only
	// ErrorContext holds prior failures scoped per the tier: the failing
	// message only for quick fixes, full history for deeper tiers
	ErrorContext []string
	// FailingFile is the file of the last validation failure, set for
	// quick fixes so the regeneration can be targeted
	FailingFile string
	// PriorAttempts summarizes attempts recorded across the whole task,
	// set for deeper tiers as reasoning context
	PriorAttempts []string
	// KnownFix carries a cached resolution when the pattern cache
	// short-circuits escalation
	KnownFix string
}

// GeneratorGateway is the code generation collaborator
type GeneratorGateway interface {
	Generate(ctx context.Context, req GenerateRequest) (*Changes, error)
}

// ValidationFailure is one lint/type-check/test failure
type ValidationFailure struct {
	Category string `json:"category"` // lint, typecheck, test, build
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
}

// Report is the validation result for one set of changes
type Report struct {
	Passed   bool                `json:"passed"`
	Failures []ValidationFailure `json:"failures,omitempty"`
}

// FirstSignature derives the error signature of the first failure
func (r *Report) FirstSignature() (debug.Signature, bool) {
	if r.Passed || len(r.Failures) == 0 {
		return debug.Signature{}, false
	}
	f := r.Failures[0]
	return debug.NewSignature(f.Category, f.Message), true
}

// ValidatorGateway runs lint/type-check/tests over applied changes
type ValidatorGateway interface {
	Run(ctx context.Context, changes *Changes) (*Report, error)
}

// FinalizerGateway commits/integrates accepted changes. Failures here
// are fatal and never retried; partial changes stay in place.
type FinalizerGateway interface {
	Finalize(ctx context.Context, taskID string, planIDs []string) error
}
