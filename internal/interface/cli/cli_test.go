package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/app/config"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

func seedTask(t *testing.T, store *snapshot.Store, phase task.Phase, request string) *task.Task {
	t.Helper()
	tk := task.New(request)

	var payload any = &snapshot.PrePlanningPayload{}
	if phase != task.PhasePrePlanning {
		require.NoError(t, tk.AdvanceTo(task.PhaseComplexityGate))
		if phase != task.PhaseComplexityGate {
			require.NoError(t, tk.AdvanceTo(phase))
		}
		switch phase {
		case task.PhaseComplexityGate:
			payload = &snapshot.GatePayload{}
		case task.PhaseCancelled:
			payload = &snapshot.TerminalPayload{}
		default:
			t.Fatalf("unsupported seed phase %s", phase)
		}
	}

	snap, err := snapshot.New(tk, tk.CurrentPhase, "", payload)
	require.NoError(t, err)
	require.NoError(t, store.Save(snap))
	return tk
}

func TestNewRootSubcommands(t *testing.T) {
	root := NewRoot()

	want := []string{"run", "list", "status", "clear"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %s", name)
	}
}

func TestMostRecentActive(t *testing.T) {
	store := snapshot.NewStore(afero.NewMemMapFs(), "/snapshots")

	old := seedTask(t, store, task.PhasePrePlanning, "old request")
	// The store orders by snapshot timestamp; ensure distinct times
	time.Sleep(10 * time.Millisecond)
	recent := seedTask(t, store, task.PhaseComplexityGate, "recent request")
	seedTask(t, store, task.PhaseCancelled, "done request")

	id, err := mostRecentActive(store)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, id)
	assert.NotEqual(t, old.ID, id)
}

func TestMostRecentActiveNoneActive(t *testing.T) {
	store := snapshot.NewStore(afero.NewMemMapFs(), "/snapshots")
	seedTask(t, store, task.PhaseCancelled, "done")

	_, err := mostRecentActive(store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active task")
}

func setupHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	globalPaths = app.ResolvePathsFrom(home)
	require.NoError(t, globalPaths.EnsureDirs())
	globalConfig = config.NewAppConfig(
		home, "claude", "mock", 60,
		3, 3, 3, 7, "prompt",
		"", "", "", false, "default", "",
	)
}

func TestClearRefusesActiveTask(t *testing.T) {
	setupHome(t)
	store := snapshot.NewStore(afero.NewOsFs(), globalPaths.Snapshots)
	tk := seedTask(t, store, task.PhasePrePlanning, "in flight")

	cmd := newClearCmd()
	cmd.SetArgs([]string{tk.ID.String()})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}

func TestClearArchivesTerminalTask(t *testing.T) {
	setupHome(t)
	store := snapshot.NewStore(afero.NewOsFs(), globalPaths.Snapshots)
	tk := seedTask(t, store, task.PhaseCancelled, "finished")

	cmd := newClearCmd()
	cmd.SetArgs([]string{tk.ID.String()})
	require.NoError(t, cmd.Execute())

	// The snapshot directory moved under var/archive/<ts>_<ulid>/<task-id>,
	// and a tarball of it was stored through the local gateway
	entries, err := afero.ReadDir(afero.NewOsFs(), globalPaths.Archive)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	moved := false
	for _, e := range entries {
		if e.Name() == "artifacts" {
			continue
		}
		moved = true
		assert.DirExists(t, filepath.Join(globalPaths.Archive, e.Name(), tk.ID.String()))
	}
	assert.True(t, moved, "archived snapshot directory missing")

	artifactDirs, err := afero.ReadDir(afero.NewOsFs(), filepath.Join(globalPaths.Archive, "artifacts", tk.ID.String()))
	require.NoError(t, err)
	require.Len(t, artifactDirs, 1)
	tarball := filepath.Join(globalPaths.Archive, "artifacts", tk.ID.String(), artifactDirs[0].Name(), "content")
	assert.FileExists(t, tarball)

	// A second clear finds nothing
	cmd = newClearCmd()
	cmd.SetArgs([]string{tk.ID.String()})
	assert.ErrorIs(t, cmd.Execute(), snapshot.ErrNotFound)
}

func TestClearForceClearsActiveTask(t *testing.T) {
	setupHome(t)
	store := snapshot.NewStore(afero.NewOsFs(), globalPaths.Snapshots)
	tk := seedTask(t, store, task.PhasePrePlanning, "in flight")

	cmd := newClearCmd()
	cmd.SetArgs([]string{tk.ID.String(), "--force"})
	require.NoError(t, cmd.Execute())

	_, err := store.Latest(tk.ID)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}
