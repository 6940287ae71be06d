package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/app/config"
	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

// tierBands is the number of escalation bands a plan's error chain can
// walk through; the per-plan attempt ceiling is CodeGenAttempts per band
const tierBands = 3

// Coordinator drives a task through its phase lifecycle. Every phase
// entry is snapshotted before the phase handler runs, so a crash at any
// point resumes by re-entering the recorded phase at its recorded
// sub-state.
type Coordinator struct {
	store      *snapshot.Store
	planner    output.PlannerGateway
	generator  output.GeneratorGateway
	validator  output.ValidatorGateway
	finalizer  output.FinalizerGateway
	prompter   output.DecisionPrompter
	groups     *GroupProcessor
	escalation *EscalationService
	planLog    PlanLog
	journal    *app.JournalWriter
	statusPath string
	cfg        config.Config
}

// NewCoordinator wires the orchestrator
func NewCoordinator(
	store *snapshot.Store,
	planner output.PlannerGateway,
	generator output.GeneratorGateway,
	validator output.ValidatorGateway,
	finalizer output.FinalizerGateway,
	prompter output.DecisionPrompter,
	groups *GroupProcessor,
	escalation *EscalationService,
	planLog PlanLog,
	journal *app.JournalWriter,
	statusPath string,
	cfg config.Config,
) *Coordinator {
	return &Coordinator{
		store:      store,
		planner:    planner,
		generator:  generator,
		validator:  validator,
		finalizer:  finalizer,
		prompter:   prompter,
		groups:     groups,
		escalation: escalation,
		planLog:    planLog,
		journal:    journal,
		statusPath: statusPath,
		cfg:        cfg,
	}
}

// Start creates a new task for the request and runs it to a terminal
// phase. The returned task carries the terminal state.
func (c *Coordinator) Start(ctx context.Context, request string) (*task.Task, error) {
	t := task.New(request)
	app.GetLogger().Info("task %s: starting (%d chars of request)", t.ID, len(request))

	payload := &snapshot.PrePlanningPayload{}
	if err := c.persist(t, "", payload); err != nil {
		return nil, fmt.Errorf("initial snapshot: %w", err)
	}
	c.record(t, "enter", "", nil)

	return t, c.run(ctx, t, payload)
}

// Resume reloads the latest snapshot for the task and re-enters its
// recorded phase. Resuming a terminal task is a no-op.
func (c *Coordinator) Resume(ctx context.Context, id task.ID) (*task.Task, error) {
	snap, err := c.store.Latest(id)
	if err != nil {
		return nil, err
	}
	t, err := snap.RehydrateTask()
	if err != nil {
		return nil, err
	}

	if t.CurrentPhase.IsTerminal() {
		app.GetLogger().Info("task %s: already %s, nothing to resume", t.ID, t.CurrentPhase)
		return t, nil
	}

	payload, err := decodeForPhase(snap)
	if err != nil {
		return nil, err
	}

	app.GetLogger().Info("task %s: resuming at %s", t.ID, t.CurrentPhase)
	c.record(t, "resume", snap.SubState, nil)
	return t, c.run(ctx, t, payload)
}

// decodeForPhase unmarshals the snapshot payload into the concrete
// type for its phase
func decodeForPhase(snap *snapshot.Snapshot) (any, error) {
	var payload any
	switch snap.Phase {
	case task.PhasePrePlanning:
		payload = &snapshot.PrePlanningPayload{}
	case task.PhaseComplexityGate:
		payload = &snapshot.GatePayload{}
	case task.PhaseGroupProcessing:
		payload = &snapshot.GroupProcessingPayload{}
	case task.PhaseCodeGenValidation:
		payload = &snapshot.CodeGenPayload{}
	case task.PhaseFinalization:
		payload = &snapshot.FinalizationPayload{}
	default:
		return nil, fmt.Errorf("%w: no payload for phase %s", snapshot.ErrCorrupt, snap.Phase)
	}
	if err := snap.DecodePayload(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// run executes phase handlers until the task reaches a terminal phase.
// Each handler receives the payload for its phase and returns the next
// phase with its payload.
func (c *Coordinator) run(ctx context.Context, t *task.Task, payload any) error {
	for !t.CurrentPhase.IsTerminal() {
		start := time.Now()

		next, nextPayload, err := c.dispatch(ctx, t, payload)
		if err != nil {
			if errors.Is(err, ErrUserCancelled) {
				next = task.PhaseCancelled
				nextPayload = &snapshot.TerminalPayload{Reason: err.Error()}
			} else {
				app.GetLogger().Error("task %s: phase %s failed: %v", t.ID, t.CurrentPhase, err)
				c.record(t, "fail", "", err)
				next = task.PhaseFailed
				nextPayload = &snapshot.TerminalPayload{Reason: err.Error()}
			}
		}

		if terr := c.transition(t, next, nextPayload, time.Since(start)); terr != nil {
			return terr
		}
		if err != nil && next == task.PhaseFailed {
			c.writeStatus(t, err)
		}
		payload = nextPayload
	}

	app.GetLogger().Info("task %s: finished as %s", t.ID, t.CurrentPhase)
	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, t *task.Task, payload any) (task.Phase, any, error) {
	switch t.CurrentPhase {
	case task.PhasePrePlanning:
		return c.handlePrePlanning(ctx, t, payload.(*snapshot.PrePlanningPayload))
	case task.PhaseComplexityGate:
		return c.handleComplexityGate(ctx, t, payload.(*snapshot.GatePayload))
	case task.PhaseGroupProcessing:
		return c.handleGroupProcessing(ctx, t, payload.(*snapshot.GroupProcessingPayload))
	case task.PhaseCodeGenValidation:
		return c.handleCodeGen(ctx, t, payload.(*snapshot.CodeGenPayload))
	case task.PhaseFinalization:
		return c.handleFinalization(ctx, t, payload.(*snapshot.FinalizationPayload))
	default:
		return "", nil, fmt.Errorf("no handler for phase %s", t.CurrentPhase)
	}
}

// transition advances the task and persists the next phase's snapshot
// before its handler runs
func (c *Coordinator) transition(t *task.Task, next task.Phase, payload any, elapsed time.Duration) error {
	if err := t.AdvanceTo(next); err != nil {
		return err
	}
	if err := c.persist(t, "", payload); err != nil {
		return fmt.Errorf("snapshot %s: %w", next, err)
	}
	event := "enter"
	switch next {
	case task.PhaseCompleted:
		event = "complete"
	case task.PhaseFailed:
		event = "fail"
	case task.PhaseCancelled:
		event = "cancel"
	}
	c.recordElapsed(t, event, "", nil, elapsed)
	return nil
}

// persist writes the snapshot for the task's current phase and refreshes
// the status surface
func (c *Coordinator) persist(t *task.Task, subState string, payload any) error {
	snap, err := snapshot.New(t, t.CurrentPhase, subState, payload)
	if err != nil {
		return err
	}
	if err := c.store.Save(snap); err != nil {
		return err
	}
	c.writeStatus(t, nil)
	return nil
}

func (c *Coordinator) writeStatus(t *task.Task, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	ok := t.CurrentPhase != task.PhaseFailed && cause == nil
	if err := app.WriteStatus(c.statusPath, t.ID.String(), t.CurrentPhase.String(), t.Status.String(), ok, msg); err != nil {
		app.GetLogger().Warn("write status: %v", err)
	}
}

func (c *Coordinator) record(t *task.Task, event, detail string, cause error) {
	c.recordElapsed(t, event, detail, cause, 0)
}

func (c *Coordinator) recordElapsed(t *task.Task, event, detail string, cause error, elapsed time.Duration) {
	if c.journal == nil {
		return
	}
	entry := &app.JournalEntry{
		TaskID:    t.ID.String(),
		Phase:     t.CurrentPhase.String(),
		Event:     event,
		Detail:    detail,
		ElapsedMs: elapsed.Milliseconds(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := c.journal.Append(entry); err != nil {
		app.GetLogger().Warn("journal append: %v", err)
	}
}

// handlePrePlanning decomposes the request into feature groups with a
// bounded retry on structurally invalid decompositions
func (c *Coordinator) handlePrePlanning(ctx context.Context, t *task.Task, p *snapshot.PrePlanningPayload) (task.Phase, any, error) {
	maxAttempts := c.cfg.PlanningAttempts()

	var lastErr error
	for p.Attempts < maxAttempts {
		p.Attempts++
		if err := c.persist(t, fmt.Sprintf("attempt=%d", p.Attempts), p); err != nil {
			return "", nil, err
		}

		dec, err := c.planner.Plan(ctx, t.OriginalRequest)
		if err == nil {
			err = validateDecomposition(dec)
		}
		if err == nil {
			app.GetLogger().Info("task %s: decomposed into %d groups (complexity %d)",
				t.ID, len(dec.Groups), dec.ComplexityScore)
			return task.PhaseComplexityGate, &snapshot.GatePayload{Decomposition: dec}, nil
		}

		lastErr = err
		app.GetLogger().Warn("task %s: decomposition attempt %d/%d failed: %v",
			t.ID, p.Attempts, maxAttempts, err)
	}

	return "", nil, fmt.Errorf("pre-planning exhausted %d attempts: %w", maxAttempts, lastErr)
}

// validateDecomposition rejects structurally unusable planner output
func validateDecomposition(dec *output.Decomposition) error {
	if dec == nil {
		return fmt.Errorf("planner returned no decomposition")
	}
	if len(dec.Groups) == 0 {
		return fmt.Errorf("decomposition has no groups")
	}
	for i, g := range dec.Groups {
		if g.Description == "" {
			return fmt.Errorf("group %d has an empty description", i)
		}
	}
	if dec.ComplexityScore < 0 || dec.ComplexityScore > 10 {
		return fmt.Errorf("complexity score %d out of range", dec.ComplexityScore)
	}
	return nil
}

// handleComplexityGate offers the three-way decision when the request
// looks too large for a single task
func (c *Coordinator) handleComplexityGate(ctx context.Context, t *task.Task, p *snapshot.GatePayload) (task.Phase, any, error) {
	dec := p.Decomposition
	triggered := dec.ComplexityFlag || dec.ComplexityScore > c.cfg.ComplexityThreshold()

	decision := group.GateProceed
	if triggered && !c.cfg.AutoApprove() {
		var err error
		decision, err = c.prompter.DecideGate(ctx, dec.ComplexityScore, c.cfg.ComplexityThreshold(), dec.Rationale)
		if err != nil {
			return "", nil, err
		}
	} else if triggered {
		app.GetLogger().Warn("task %s: complexity %d exceeds threshold %d, auto-approve proceeds",
			t.ID, dec.ComplexityScore, c.cfg.ComplexityThreshold())
	}

	if decision.IsCancel() {
		reason := "cancelled at complexity gate"
		if decision == group.GateCancelAndRefine {
			reason = "cancelled for request refinement"
			app.GetLogger().Info("task %s: cancelled for refinement; resubmit as smaller requests", t.ID)
		}
		return task.PhaseCancelled, &snapshot.TerminalPayload{Reason: reason}, nil
	}
	if decision != group.GateProceed {
		return "", nil, fmt.Errorf("unknown gate decision %q", decision)
	}

	groups := make([]*group.FeatureGroup, 0, len(dec.Groups))
	for _, gs := range dec.Groups {
		groups = append(groups, group.NewFeatureGroup(gs.Description))
	}
	return task.PhaseGroupProcessing, &snapshot.GroupProcessingPayload{
		Decomposition: dec,
		Groups:        groups,
	}, nil
}

// handleGroupProcessing reviews groups strictly one at a time,
// snapshotting after each disposition so resumption never reprocesses
// a decided group
func (c *Coordinator) handleGroupProcessing(ctx context.Context, t *task.Task, p *snapshot.GroupProcessingPayload) (task.Phase, any, error) {
	for i := p.NextGroupIndex; i < len(p.Groups); i++ {
		g := p.Groups[i]
		app.GetLogger().Info("task %s: reviewing group %d/%d (%s)", t.ID, i+1, len(p.Groups), g.GroupID)

		if err := c.groups.Process(ctx, t.OriginalRequest, g); err != nil {
			return "", nil, err
		}

		p.NextGroupIndex = i + 1
		if err := c.persist(t, fmt.Sprintf("group=%d", p.NextGroupIndex), p); err != nil {
			return "", nil, err
		}
		c.record(t, "group_decided", fmt.Sprintf("%s:%s", g.GroupID, g.Disposition), nil)
	}

	var planIDs []string
	for _, g := range p.Groups {
		if g.Disposition == group.DispositionAccepted {
			planIDs = append(planIDs, g.PlanFileID)
		}
	}
	if len(planIDs) == 0 {
		app.GetLogger().Info("task %s: no plans accepted, nothing to generate", t.ID)
	}

	return task.PhaseCodeGenValidation, &snapshot.CodeGenPayload{PlanIDs: planIDs}, nil
}

// handleCodeGen generates and validates each accepted plan in order.
// Failed attempts walk the escalation tiers; the attempt counter and
// error chain are snapshotted so a crash mid-chain resumes at the same
// tier.
func (c *Coordinator) handleCodeGen(ctx context.Context, t *task.Task, p *snapshot.CodeGenPayload) (task.Phase, any, error) {
	maxAttempts := c.cfg.CodeGenAttempts() * tierBands

	for ; p.PlanIndex < len(p.PlanIDs); p.PlanIndex++ {
		planID := p.PlanIDs[p.PlanIndex]
		plan, err := c.planLog.Read(planID)
		if err != nil {
			return "", nil, fmt.Errorf("load plan %s: %w", planID, err)
		}

		done, err := c.generatePlan(ctx, t, p, plan, maxAttempts)
		if err != nil {
			return "", nil, err
		}
		if !done {
			return "", nil, fmt.Errorf("plan %s: %d generation attempts exhausted", planID, maxAttempts)
		}

		// Reset the chain for the next plan
		p.Attempt = 0
		p.StrategicRounds = 0
		p.History = nil
		p.LastFile = ""
	}

	return task.PhaseFinalization, &snapshot.FinalizationPayload{PlanIDs: p.PlanIDs}, nil
}

// generatePlan runs the attempt loop for one plan, returning true on a
// validated success
func (c *Coordinator) generatePlan(ctx context.Context, t *task.Task, p *snapshot.CodeGenPayload, plan *group.ConsolidatedPlan, maxAttempts int) (bool, error) {
	var releases []func()
	defer func() {
		for _, release := range releases {
			release()
		}
	}()

	for p.Attempt < maxAttempts {
		p.Attempt++
		if err := c.persist(t, fmt.Sprintf("plan=%s attempt=%d", plan.PlanID, p.Attempt), p); err != nil {
			return false, err
		}

		var last debug.Signature
		if n := len(p.History); n > 0 {
			last = p.History[n-1]
		}
		action := c.escalation.Decide(p.Attempt, last, p.History, p.StrategicRounds)

		req := output.GenerateRequest{
			Request:  t.OriginalRequest,
			Plan:     plan,
			Attempt:  p.Attempt,
			Tier:     action.Tier,
			Strategy: action.Strategy,
			KnownFix: action.KnownFix,
		}
		switch action.Tier {
		case debug.TierQuickFix:
			if last.Message != "" {
				req.ErrorContext = []string{last.Message}
				req.FailingFile = p.LastFile
			}
		default:
			for _, sig := range p.History {
				req.ErrorContext = append(req.ErrorContext, sig.Message)
			}
			req.PriorAttempts = c.escalation.PriorAttempts(t.ID.String())
		}

		if action.Tier == debug.TierStrategicRestart {
			p.StrategicRounds++
			app.GetLogger().Warn("task %s: plan %s attempt %d escalates to %s (%s)",
				t.ID, plan.PlanID, p.Attempt, action.Tier, action.Strategy)

			if action.Strategy == debug.StrategyModifyRequest {
				modified, err := c.prompter.RequestModifiedInput(ctx, t.OriginalRequest)
				if err != nil {
					return false, err
				}
				if modified != "" {
					t.OriginalRequest = modified
					req.Request = modified
				}
			}
		}

		changes, err := c.generator.Generate(ctx, req)
		if err != nil {
			return false, fmt.Errorf("generate: %w", err)
		}

		report, err := c.validator.Run(ctx, changes)
		if err != nil {
			return false, fmt.Errorf("validate: %w", err)
		}

		if report.Passed {
			if last.Message != "" {
				c.escalation.RecordResolution(t.ID.String(), last, action.Tier, changes.Summary)
			}
			c.record(t, "plan_generated", plan.PlanID, nil)
			return true, nil
		}

		sig, _ := report.FirstSignature()
		releases = append(releases, c.escalation.RecordFailure(t.ID.String(), sig, action.Tier))
		p.History = append(p.History, sig)
		if len(report.Failures) > 0 {
			p.LastFile = report.Failures[0].File
		}
		app.GetLogger().Warn("task %s: plan %s attempt %d failed validation: %s: %s",
			t.ID, plan.PlanID, p.Attempt, sig.Category, sig.Message)
	}

	if n := len(p.History); n > 0 {
		last := p.History[n-1]
		c.escalation.RecordAbandon(t.ID.String(), last, c.escalation.table.TierFor(p.Attempt))
	}
	return false, nil
}

// handleFinalization commits accepted artifacts. A failure here is
// fatal and never retried; partial changes stay in place for manual
// inspection.
func (c *Coordinator) handleFinalization(ctx context.Context, t *task.Task, p *snapshot.FinalizationPayload) (task.Phase, any, error) {
	if err := c.finalizer.Finalize(ctx, t.ID.String(), p.PlanIDs); err != nil {
		return "", nil, fmt.Errorf("finalization: %w", err)
	}
	return task.PhaseCompleted, &snapshot.TerminalPayload{}, nil
}
