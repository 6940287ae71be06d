package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

func TestS3StorageGatewaySaveAndLoad(t *testing.T) {
	client := NewMockS3Client()
	gw := NewS3StorageGatewayWithClient(client, "devtask-archives", "devtask/test")

	meta, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
		TaskID:       "task-1",
		ArtifactType: output.ArtifactTypeArchive,
		Content:      []byte("archive bytes"),
		ContentType:  "application/gzip",
		Metadata:     map[string]string{"phase": "completed"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, int64(len("archive bytes")), meta.Size)
	assert.Contains(t, meta.StoragePath, "s3://devtask-archives/devtask/test/artifacts/task-1/")
	// content + metadata.json
	assert.Equal(t, 2, client.ObjectCount())

	artifact, err := gw.LoadArtifact(context.Background(), meta.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("archive bytes"), artifact.Content)
	assert.Equal(t, output.ArtifactTypeArchive, artifact.Metadata.Type)
	assert.Equal(t, "completed", artifact.Metadata.Metadata["phase"])
}

func TestS3StorageGatewayLoadMissing(t *testing.T) {
	gw := NewS3StorageGatewayWithClient(NewMockS3Client(), "bucket", "")

	_, err := gw.LoadArtifact(context.Background(), "01J00000000000000000000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestS3StorageGatewayListArtifacts(t *testing.T) {
	client := NewMockS3Client()
	gw := NewS3StorageGatewayWithClient(client, "bucket", "")

	for i := 0; i < 3; i++ {
		_, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
			TaskID:       "task-a",
			ArtifactType: output.ArtifactTypePlan,
			Content:      []byte{byte(i)},
		})
		require.NoError(t, err)
	}
	_, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
		TaskID:       "task-b",
		ArtifactType: output.ArtifactTypeLog,
		Content:      []byte("other"),
	})
	require.NoError(t, err)

	list, err := gw.ListArtifacts(context.Background(), "task-a")
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, meta := range list {
		assert.Equal(t, "task-a", meta.TaskID)
	}
}

func TestS3StorageGatewayDeleteArtifact(t *testing.T) {
	client := NewMockS3Client()
	gw := NewS3StorageGatewayWithClient(client, "bucket", "p")

	meta, err := gw.SaveArtifact(context.Background(), output.SaveArtifactRequest{
		TaskID:       "task-1",
		ArtifactType: output.ArtifactTypeSnapshot,
		Content:      []byte("snap"),
	})
	require.NoError(t, err)
	require.Equal(t, 2, client.ObjectCount())

	require.NoError(t, gw.DeleteArtifact(context.Background(), "task-1", meta.ID))
	assert.Equal(t, 0, client.ObjectCount())
}
