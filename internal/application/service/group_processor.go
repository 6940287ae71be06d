package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
)

// ErrUserCancelled signals that the user aborted the interaction; the
// coordinator turns it into a clean terminal transition, not a failure
var ErrUserCancelled = errors.New("cancelled by user")

// PlanLog persists accepted consolidated plans under unique plan ids
type PlanLog interface {
	Write(plan *group.ConsolidatedPlan) (string, error)
	Read(planID string) (*group.ConsolidatedPlan, error)
}

// GroupProcessorConfig bounds the review loop
type GroupProcessorConfig struct {
	ModificationCap int
	// ForcedDecision selects the behavior when the cap is exceeded:
	// "prompt" (restricted accept/reject prompt), "auto-accept", or
	// "auto-reject"
	ForcedDecision string
}

// GroupProcessor turns one feature group into a consolidated plan and
// drives the accept/reject/modify loop. Groups are always processed
// one at a time so user interactions never interleave.
type GroupProcessor struct {
	planner  output.PlannerGateway
	prompter output.DecisionPrompter
	planLog  PlanLog
	cfg      GroupProcessorConfig
}

// NewGroupProcessor wires the sub-workflow
func NewGroupProcessor(planner output.PlannerGateway, prompter output.DecisionPrompter, planLog PlanLog, cfg GroupProcessorConfig) *GroupProcessor {
	if cfg.ModificationCap <= 0 {
		cfg.ModificationCap = group.MaxModificationAttempts
	}
	if cfg.ForcedDecision == "" {
		cfg.ForcedDecision = "prompt"
	}
	return &GroupProcessor{planner: planner, prompter: prompter, planLog: planLog, cfg: cfg}
}

// Process reviews one group to a terminal disposition. The group is
// finalized in place; on accept its PlanFileID carries the plan id.
func (p *GroupProcessor) Process(ctx context.Context, request string, g *group.FeatureGroup) error {
	if g.IsFinalized() {
		// Resumption may hand back already-dispositioned groups
		return nil
	}

	if err := p.generateArtifacts(ctx, request, g, ""); err != nil {
		return err
	}
	if err := p.validate(ctx, g); err != nil {
		return err
	}

	for {
		plan := group.Consolidate("", g)
		remaining := p.cfg.ModificationCap - g.ModificationAttempts

		outcome, err := p.prompter.DecideReview(ctx, plan, remaining)
		if err != nil {
			return err
		}

		switch outcome.Decision {
		case group.DecisionAccept:
			return p.accept(g, plan)

		case group.DecisionReject:
			return g.Finalize(group.DispositionRejected, "")

		case group.DecisionModify:
			if !g.CanModify(p.cfg.ModificationCap) {
				return p.forceDecision(ctx, g, plan)
			}
			if err := g.RecordModification(p.cfg.ModificationCap); err != nil {
				return err
			}
			// The modification reshapes the architecture review; all
			// validations re-run afterwards, never a partial re-check
			if err := p.generateArtifacts(ctx, request, g, outcome.Modification); err != nil {
				return err
			}
			if err := p.validate(ctx, g); err != nil {
				return err
			}

		default:
			return fmt.Errorf("unknown review decision %q", outcome.Decision)
		}
	}
}

// generateArtifacts produces the three plan artifacts in order. With a
// modification only the architecture review changes shape; the
// downstream artifacts are regenerated from it.
func (p *GroupProcessor) generateArtifacts(ctx context.Context, request string, g *group.FeatureGroup, modification string) error {
	arch, err := p.planner.GenerateArtifact(ctx, output.ArtifactRequest{
		Kind:         output.ArtifactArchitecture,
		Request:      request,
		Group:        g,
		Modification: modification,
	})
	if err != nil {
		return fmt.Errorf("architecture review: %w", err)
	}
	g.ArchitectureReview = arch

	impl, err := p.planner.GenerateArtifact(ctx, output.ArtifactRequest{
		Kind:    output.ArtifactImplementation,
		Request: request,
		Group:   g,
	})
	if err != nil {
		return fmt.Errorf("implementation plan: %w", err)
	}
	g.ImplementationPlan = impl

	tests, err := p.planner.GenerateArtifact(ctx, output.ArtifactRequest{
		Kind:    output.ArtifactTests,
		Request: request,
		Group:   g,
	})
	if err != nil {
		return fmt.Errorf("test plan: %w", err)
	}
	g.Tests = tests

	return nil
}

// validate runs the full validation set over the group's artifacts
func (p *GroupProcessor) validate(ctx context.Context, g *group.FeatureGroup) error {
	report, err := p.planner.ValidatePlan(ctx, g)
	if err != nil {
		return fmt.Errorf("plan validation: %w", err)
	}
	g.SemanticValidation = report

	if report.Coherence.HasCritical() {
		app.GetLogger().Warn("group %s: coherence score %d with %d critical issues",
			g.GroupID, report.Coherence.Score, len(report.Coherence.CriticalIssues))
	}
	return nil
}

// accept persists the plan before finalizing; a crash after the write
// leaves an orphaned plan file, never an accepted group without a plan
func (p *GroupProcessor) accept(g *group.FeatureGroup, plan *group.ConsolidatedPlan) error {
	planID, err := p.planLog.Write(plan)
	if err != nil {
		return fmt.Errorf("persist plan: %w", err)
	}
	return g.Finalize(group.DispositionAccepted, planID)
}

// forceDecision resolves the loop after the modification cap: the user
// gets a terminal accept/reject choice, or the configured automatic
// policy applies
func (p *GroupProcessor) forceDecision(ctx context.Context, g *group.FeatureGroup, plan *group.ConsolidatedPlan) error {
	app.GetLogger().Info("group %s: modification cap (%d) reached, forcing terminal decision",
		g.GroupID, p.cfg.ModificationCap)

	var decision group.ReviewDecision
	switch p.cfg.ForcedDecision {
	case "auto-accept":
		decision = group.DecisionAccept
	case "auto-reject":
		decision = group.DecisionReject
	default:
		var err error
		decision, err = p.prompter.DecideForced(ctx, plan)
		if err != nil {
			return err
		}
	}

	if decision == group.DecisionAccept {
		return p.accept(g, plan)
	}
	// A forced non-accept abandons the group rather than recording a
	// deliberate rejection
	return g.Finalize(group.DispositionAbandoned, "")
}
