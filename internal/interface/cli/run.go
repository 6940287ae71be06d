package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/adapter/gateway/agent"
	"github.com/YoshitsuguKoike/devtask/internal/adapter/gateway/collab"
	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/application/service"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
	"github.com/YoshitsuguKoike/devtask/internal/infra/fs"
	"github.com/YoshitsuguKoike/devtask/internal/infra/patterncache"
	"github.com/YoshitsuguKoike/devtask/internal/infra/planlog"
	"github.com/YoshitsuguKoike/devtask/internal/infra/policy"
	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

func newRunCmd() *cobra.Command {
	var request string
	var taskID string
	var agentType string
	var auto bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new task or resume an interrupted one",
		Long: `Run starts a new development task from --request, or resumes the
task given by --task. Without either flag the most recently updated
active task is resumed.

Only one orchestrator may run per devtask home; a second invocation
fails on the run lock.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := globalPaths
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			release, err := fs.AcquireLock(paths.RunLock)
			if err != nil {
				return fmt.Errorf("another devtask run is active: %w", err)
			}
			defer func() {
				if err := release(); err != nil {
					app.GetLogger().Warn("release run lock: %v", err)
				}
			}()

			coord, cache, err := buildCoordinator(paths, agentType, auto)
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}

			ctx := cmd.Context()
			store := snapshot.NewStore(afero.NewOsFs(), paths.Snapshots)

			var t *task.Task
			switch {
			case request != "":
				t, err = coord.Start(ctx, request)
			case taskID != "":
				t, err = coord.Resume(ctx, task.ID(taskID))
			default:
				id, ferr := mostRecentActive(store)
				if ferr != nil {
					return ferr
				}
				t, err = coord.Resume(ctx, id)
			}
			if err != nil {
				if errors.Is(err, snapshot.ErrCorrupt) {
					return fmt.Errorf("%w\nsnapshot files are left in place for inspection; start over with: devtask run -r \"<request>\"", err)
				}
				return err
			}
			if cache != nil {
				cache.Flush()
			}

			fmt.Printf("task %s: %s (%s)\n", t.ID, t.CurrentPhase, t.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&request, "request", "r", "", "Development request to start a new task")
	cmd.Flags().StringVarP(&taskID, "task", "t", "", "Task ID to resume")
	cmd.Flags().StringVar(&agentType, "agent", "", "Agent backend (claude-code-cli, mock)")
	cmd.Flags().BoolVar(&auto, "auto", false, "Replace interactive prompts with configured defaults")

	return cmd
}

// buildCoordinator wires the orchestrator from the loaded configuration
func buildCoordinator(paths app.Paths, agentType string, auto bool) (*service.Coordinator, *patterncache.Cache, error) {
	if agentType == "" {
		agentType = globalConfig.AgentType()
	}
	agentGW, err := agent.NewAgentGateway(agentType, globalConfig.AgentBin(), globalConfig.Timeout())
	if err != nil {
		return nil, nil, err
	}

	timeout := globalConfig.Timeout()
	planner := collab.NewPlanner(agentGW, timeout)
	generator := collab.NewGenerator(agentGW, timeout)
	validator := collab.NewValidator(agentGW, timeout)
	finalizer := collab.NewFinalizer(agentGW, timeout)

	cache, err := patterncache.Open(paths.CacheDB)
	if err != nil {
		return nil, nil, err
	}

	pol, err := policy.LoadEscalationPolicy(paths.Policy)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	escalation, err := service.NewEscalationService(pol.Tiers, cache)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}

	var prompter output.DecisionPrompter = NewTerminalPrompter()
	if auto || globalConfig.AutoApprove() {
		prompter = NewAutoPrompter()
	}

	planLog := planlog.NewLog(paths.Plans)
	groups := service.NewGroupProcessor(planner, prompter, planLog, service.GroupProcessorConfig{
		ModificationCap: globalConfig.ModificationCap(),
		ForcedDecision:  globalConfig.ForcedDecision(),
	})

	coord := service.NewCoordinator(
		snapshot.NewStore(afero.NewOsFs(), paths.Snapshots),
		planner, generator, validator, finalizer,
		prompter, groups, escalation, planLog,
		app.NewJournalWriter(paths.Journal), paths.Status, globalConfig,
	)
	return coord, cache, nil
}

// mostRecentActive picks the newest non-terminal task from the store
func mostRecentActive(store *snapshot.Store) (task.ID, error) {
	summaries, err := store.ListTasks()
	if err != nil {
		return "", err
	}
	var newest *snapshot.Summary
	for i := range summaries {
		s := summaries[i]
		if s.Status != task.StatusActive {
			continue
		}
		if newest == nil || s.UpdatedAt.After(newest.UpdatedAt) {
			newest = &s
		}
	}
	if newest == nil {
		return "", fmt.Errorf("no active task to resume; start one with --request")
	}
	return newest.TaskID, nil
}
