package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

func TestLocalStorageGatewaySaveAndLoad(t *testing.T) {
	baseDir := t.TempDir()
	gw, err := NewLocalStorageGateway(baseDir)
	require.NoError(t, err)

	meta, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
		TaskID:       "task-1",
		ArtifactType: output.ArtifactTypeArchive,
		Content:      []byte("archived snapshots"),
		ContentType:  "application/gzip",
	})
	require.NoError(t, err)

	// Content lands under artifacts/<taskID>/<artifactID>/
	assert.FileExists(t, filepath.Join(baseDir, "artifacts", "task-1", meta.ID, "content"))
	assert.FileExists(t, filepath.Join(baseDir, "artifacts", "task-1", meta.ID, "metadata.json"))

	artifact, err := gw.LoadArtifact(context.Background(), meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("archived snapshots"), artifact.Content)
	assert.Equal(t, "task-1", artifact.Metadata.TaskID)
}

func TestLocalStorageGatewayLoadMissing(t *testing.T) {
	gw, err := NewLocalStorageGateway(t.TempDir())
	require.NoError(t, err)

	_, err = gw.LoadArtifact(context.Background(), "no-such-artifact")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLocalStorageGatewayListArtifacts(t *testing.T) {
	gw, err := NewLocalStorageGateway(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
			TaskID:       "task-a",
			ArtifactType: output.ArtifactTypePlan,
			Content:      []byte{byte(i)},
		})
		require.NoError(t, err)
	}

	list, err := gw.ListArtifacts(context.Background(), "task-a")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Unknown task lists empty, not an error
	empty, err := gw.ListArtifacts(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalStorageGatewaySkipsBrokenMetadata(t *testing.T) {
	baseDir := t.TempDir()
	gw, err := NewLocalStorageGateway(baseDir)
	require.NoError(t, err)

	_, err = gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
		TaskID:       "task-a",
		ArtifactType: output.ArtifactTypeLog,
		Content:      []byte("ok"),
	})
	require.NoError(t, err)

	brokenDir := filepath.Join(baseDir, "artifacts", "task-a", "broken-artifact")
	require.NoError(t, os.MkdirAll(brokenDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(brokenDir, "metadata.json"), []byte("{not json"), 0644))

	list, err := gw.ListArtifacts(context.Background(), "task-a")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
