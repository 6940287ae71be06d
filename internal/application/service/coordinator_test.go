package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/app/config"
	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

type fakeGenerator struct {
	requests []output.GenerateRequest
	err      error
}

func (f *fakeGenerator) Generate(ctx context.Context, req output.GenerateRequest) (*output.Changes, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &output.Changes{
		Files:   []string{"main.go"},
		Summary: fmt.Sprintf("attempt %d changes", req.Attempt),
		Applied: true,
	}, nil
}

// fakeValidator consumes one scripted report per Run call; the last
// report is sticky
type fakeValidator struct {
	reports []*output.Report
	runs    int
}

func passReport() *output.Report { return &output.Report{Passed: true} }

func failReport(msg string) *output.Report {
	return &output.Report{Failures: []output.ValidationFailure{{Category: "test", Message: msg}}}
}

func failReportIn(msg, file string) *output.Report {
	return &output.Report{Failures: []output.ValidationFailure{{Category: "test", Message: msg, File: file}}}
}

func (f *fakeValidator) Run(ctx context.Context, changes *output.Changes) (*output.Report, error) {
	f.runs++
	if len(f.reports) == 0 {
		return passReport(), nil
	}
	r := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return r, nil
}

type fakeFinalizer struct {
	calls   int
	planIDs []string
	err     error
}

func (f *fakeFinalizer) Finalize(ctx context.Context, taskID string, planIDs []string) error {
	f.calls++
	f.planIDs = planIDs
	return f.err
}

type coordFixture struct {
	coord     *Coordinator
	store     *snapshot.Store
	planner   *fakePlanner
	prompter  *scriptedPrompter
	generator *fakeGenerator
	validator *fakeValidator
	finalizer *fakeFinalizer
	planLog   *memPlanLog
	status    string
	journal   string
}

func testConfig(home string) config.Config {
	return config.NewAppConfig(
		home, "claude", "mock", 60,
		3, 3, 3, 7,
		"prompt",
		"", "", "",
		false,
		"default", "",
	)
}

func newFixture(t *testing.T, planner *fakePlanner, prompter *scriptedPrompter, validator *fakeValidator) *coordFixture {
	t.Helper()
	home := t.TempDir()

	log := newMemPlanLog()
	fx := &coordFixture{
		store:     snapshot.NewStore(afero.NewMemMapFs(), "/var/task_snapshots"),
		planner:   planner,
		prompter:  prompter,
		generator: &fakeGenerator{},
		validator: validator,
		finalizer: &fakeFinalizer{},
		planLog:   log,
		status:    filepath.Join(home, "development_status.json"),
		journal:   filepath.Join(home, "journal.ndjson"),
	}
	cfg := testConfig(home)
	esc, err := NewEscalationService(debug.DefaultPolicyTable(), nil)
	require.NoError(t, err)

	groups := NewGroupProcessor(planner, prompter, log, GroupProcessorConfig{
		ModificationCap: cfg.ModificationCap(),
		ForcedDecision:  cfg.ForcedDecision(),
	})

	fx.coord = NewCoordinator(
		fx.store, planner, fx.generator, fx.validator, fx.finalizer,
		prompter, groups, esc, log,
		app.NewJournalWriter(fx.journal), fx.status, cfg,
	)
	return fx
}

func simpleDecomposition(score int, flag bool, groups ...string) *output.Decomposition {
	specs := make([]output.GroupSpec, 0, len(groups))
	for _, g := range groups {
		specs = append(specs, output.GroupSpec{Description: g})
	}
	return &output.Decomposition{Groups: specs, ComplexityScore: score, ComplexityFlag: flag}
}

func TestCoordinatorHappyPath(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(4, false, "auth", "reports")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{
		{Decision: group.DecisionAccept},
		{Decision: group.DecisionAccept},
	}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "build a web app")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)
	assert.Equal(t, task.StatusCompleted, tk.Status)
	assert.Equal(t, 1, fx.finalizer.calls)
	assert.Len(t, fx.finalizer.planIDs, 2)
	assert.Len(t, fx.generator.requests, 2)
	assert.Equal(t, debug.TierQuickFix, fx.generator.requests[0].Tier)

	snap, err := fx.store.Latest(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.PhaseCompleted, snap.Phase)

	data, err := os.ReadFile(fx.journal)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.GreaterOrEqual(t, len(lines), 6) // enter + each transition + group decisions
	assert.Contains(t, lines[len(lines)-1], `"event":"complete"`)

	st, err := app.ReadStatus(fx.status)
	require.NoError(t, err)
	assert.Equal(t, "completed", st.Phase)
	assert.True(t, st.OK)
}

func TestCoordinatorNoAcceptedPlansStillCompletes(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(2, false, "only group")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionReject}}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "small request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)
	assert.Empty(t, fx.generator.requests)
	assert.Equal(t, 1, fx.finalizer.calls)
	assert.Empty(t, fx.finalizer.planIDs)
}

func TestCoordinatorPrePlanningRetriesThenFails(t *testing.T) {
	planner := &fakePlanner{decompositions: []*output.Decomposition{nil}}
	fx := newFixture(t, planner, &scriptedPrompter{}, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "impossible request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseFailed, tk.CurrentPhase)
	assert.Equal(t, 3, planner.planCalls)

	st, err := app.ReadStatus(fx.status)
	require.NoError(t, err)
	assert.False(t, st.OK)
}

func TestCoordinatorPrePlanningRecoversOnRetry(t *testing.T) {
	planner := &fakePlanner{decompositions: []*output.Decomposition{
		simpleDecomposition(12, false, "bad score"), // out of range, rejected
		simpleDecomposition(3, false, "good group"),
	}}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)
	assert.Equal(t, 2, planner.planCalls)
}

func TestCoordinatorGateCancel(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(9, false, "huge")},
	}
	prompter := &scriptedPrompter{gate: group.GateCancel}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "rewrite everything")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCancelled, tk.CurrentPhase)
	assert.Equal(t, task.StatusCancelled, tk.Status)
	assert.Equal(t, 0, fx.finalizer.calls)

	snap, err := fx.store.Latest(tk.ID)
	require.NoError(t, err)
	var payload snapshot.TerminalPayload
	require.NoError(t, snap.DecodePayload(&payload))
	assert.Contains(t, payload.Reason, "complexity gate")
}

func TestCoordinatorGatePromptErrorFailsTask(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(9, false, "huge")},
	}
	prompter := &scriptedPrompter{gateErr: fmt.Errorf("terminal read failed: tty gone")}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "rewrite everything")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseFailed, tk.CurrentPhase)
	assert.Equal(t, task.StatusFailed, tk.Status)
	assert.Equal(t, 0, fx.finalizer.calls)

	snap, err := fx.store.Latest(tk.ID)
	require.NoError(t, err)
	var payload snapshot.TerminalPayload
	require.NoError(t, snap.DecodePayload(&payload))
	assert.Contains(t, payload.Reason, "tty gone")

	st, err := app.ReadStatus(fx.status)
	require.NoError(t, err)
	assert.False(t, st.OK)
	assert.Contains(t, st.Error, "tty gone")
}

func TestCoordinatorGateNotTriggeredBelowThreshold(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(7, false, "g")},
	}
	// Score equal to the threshold does not trigger; the gate prompt
	// would fail the test if it were consulted
	prompter := &scriptedPrompter{gate: group.GateCancel, reviews: []output.ReviewOutcome{{Decision: group.DecisionReject}}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)
	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)
	assert.False(t, prompter.gateCalled)
}

func TestCoordinatorCodeGenEscalatesThroughTiers(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(1, false, "one group")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	validator := &fakeValidator{reports: []*output.Report{
		failReport("undefined: Foo"),
		failReport("undefined: Foo"),
		failReport("undefined: Foo"),
		passReport(),
	}}
	fx := newFixture(t, planner, prompter, validator)

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)
	require.Len(t, fx.generator.requests, 4)
	assert.Equal(t, debug.TierQuickFix, fx.generator.requests[0].Tier)
	assert.Equal(t, debug.TierQuickFix, fx.generator.requests[1].Tier)
	assert.Equal(t, debug.TierFullDebug, fx.generator.requests[2].Tier)
	assert.Equal(t, debug.TierFullDebug, fx.generator.requests[3].Tier)

	// Quick fix sees the last message only; full debug sees the chain
	assert.Len(t, fx.generator.requests[1].ErrorContext, 1)
	assert.Len(t, fx.generator.requests[2].ErrorContext, 2)
	assert.Len(t, fx.generator.requests[3].ErrorContext, 3)
}

func TestCoordinatorQuickFixTargetsFailingFile(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(1, false, "one group")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	validator := &fakeValidator{reports: []*output.Report{
		failReportIn("undefined: Foo", "internal/server/server.go"),
		passReport(),
	}}
	fx := newFixture(t, planner, prompter, validator)

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)
	assert.Equal(t, task.PhaseCompleted, tk.CurrentPhase)

	require.Len(t, fx.generator.requests, 2)
	assert.Empty(t, fx.generator.requests[0].FailingFile, "first attempt has no failure yet")
	assert.Equal(t, debug.TierQuickFix, fx.generator.requests[1].Tier)
	assert.Equal(t, "internal/server/server.go", fx.generator.requests[1].FailingFile)
}

func TestCoordinatorCodeGenExhaustionFailsTask(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(1, false, "group")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	validator := &fakeValidator{reports: []*output.Report{failReport("永 parse error at line 42")}}
	fx := newFixture(t, planner, prompter, validator)

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseFailed, tk.CurrentPhase)
	// CodeGenAttempts(3) across the three tier bands
	assert.Len(t, fx.generator.requests, 9)
	assert.Equal(t, debug.TierStrategicRestart, fx.generator.requests[8].Tier)
	assert.Equal(t, 0, fx.finalizer.calls)
}

func TestCoordinatorResumeSkipsDecidedGroups(t *testing.T) {
	planner := &fakePlanner{}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})

	tk := task.New("resumable request")
	require.NoError(t, tk.AdvanceTo(task.PhaseComplexityGate))
	require.NoError(t, tk.AdvanceTo(task.PhaseGroupProcessing))

	decided := group.NewFeatureGroup("first group")
	planID, err := fx.planLog.Write(group.Consolidate("", decided))
	require.NoError(t, err)
	require.NoError(t, decided.Finalize(group.DispositionAccepted, planID))

	pending := group.NewFeatureGroup("second group")
	payload := &snapshot.GroupProcessingPayload{
		Decomposition:  simpleDecomposition(3, false, "first group", "second group"),
		Groups:         []*group.FeatureGroup{decided, pending},
		NextGroupIndex: 1,
	}
	snap, err := snapshot.New(tk, task.PhaseGroupProcessing, "group=1", payload)
	require.NoError(t, err)
	require.NoError(t, fx.store.Save(snap))

	resumed, err := fx.coord.Resume(context.Background(), tk.ID)
	require.NoError(t, err)

	assert.Equal(t, task.PhaseCompleted, resumed.CurrentPhase)
	// Only the pending group went through the artifact pipeline
	assert.Len(t, planner.artifactCalls, 3)
	assert.Len(t, fx.finalizer.planIDs, 2)
}

func TestCoordinatorResumeTerminalIsNoOp(t *testing.T) {
	planner := &fakePlanner{}
	fx := newFixture(t, planner, &scriptedPrompter{}, &fakeValidator{})

	tk := task.New("done request")
	require.NoError(t, tk.AdvanceTo(task.PhaseComplexityGate))
	require.NoError(t, tk.AdvanceTo(task.PhaseCancelled))
	snap, err := snapshot.New(tk, task.PhaseCancelled, "", &snapshot.TerminalPayload{Reason: "user"})
	require.NoError(t, err)
	require.NoError(t, fx.store.Save(snap))

	resumed, err := fx.coord.Resume(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.PhaseCancelled, resumed.CurrentPhase)
	assert.Equal(t, 0, planner.planCalls)
	assert.Equal(t, 0, fx.finalizer.calls)
}

func TestCoordinatorResumeUnknownTask(t *testing.T) {
	fx := newFixture(t, &fakePlanner{}, &scriptedPrompter{}, &fakeValidator{})
	_, err := fx.coord.Resume(context.Background(), task.NewID())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestCoordinatorFinalizationFailureIsFatal(t *testing.T) {
	planner := &fakePlanner{
		decompositions: []*output.Decomposition{simpleDecomposition(1, false, "g")},
	}
	prompter := &scriptedPrompter{reviews: []output.ReviewOutcome{{Decision: group.DecisionAccept}}}
	fx := newFixture(t, planner, prompter, &fakeValidator{})
	fx.finalizer.err = fmt.Errorf("commit rejected")

	tk, err := fx.coord.Start(context.Background(), "request")
	require.NoError(t, err)

	assert.Equal(t, task.PhaseFailed, tk.CurrentPhase)
	assert.Equal(t, 1, fx.finalizer.calls)

	st, err := app.ReadStatus(fx.status)
	require.NoError(t, err)
	assert.False(t, st.OK)
	assert.Contains(t, st.Error, "commit rejected")
}
