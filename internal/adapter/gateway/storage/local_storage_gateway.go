package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// LocalStorageGateway implements StorageGateway on the local filesystem.
// Directory layout: <baseDir>/artifacts/<taskID>/<artifactID>/
//   - content: the artifact bytes
//   - metadata.json: artifact metadata
type LocalStorageGateway struct {
	baseDir string
}

// NewLocalStorageGateway creates a filesystem-backed storage gateway
func NewLocalStorageGateway(baseDir string) (*LocalStorageGateway, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}
	return &LocalStorageGateway{baseDir: baseDir}, nil
}

// SaveArtifact writes the artifact content and metadata
func (g *LocalStorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	artifactID := ulid.Make().String()

	artifactDir := filepath.Join(g.baseDir, "artifacts", req.TaskID, artifactID)
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	contentPath := filepath.Join(artifactDir, "content")
	if err := os.WriteFile(contentPath, req.Content, 0644); err != nil {
		return nil, fmt.Errorf("write artifact content: %w", err)
	}

	metadata := output.ArtifactMetadata{
		ID:          artifactID,
		TaskID:      req.TaskID,
		Type:        req.ArtifactType,
		StoragePath: contentPath,
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		UploadedAt:  time.Now().UTC(),
		Metadata:    req.Metadata,
	}

	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(artifactDir, "metadata.json"), metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return &metadata, nil
}

// LoadArtifact retrieves an artifact by id, searching all task
// directories
func (g *LocalStorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	artifactsDir := filepath.Join(g.baseDir, "artifacts")

	var foundDir string
	err := filepath.WalkDir(artifactsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == artifactID {
			foundDir = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search artifact: %w", err)
	}
	if foundDir == "" {
		return nil, fmt.Errorf("artifact not found: %s", artifactID)
	}

	metadataJSON, err := os.ReadFile(filepath.Join(foundDir, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var metadata output.ArtifactMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	content, err := os.ReadFile(filepath.Join(foundDir, "content"))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &output.Artifact{ID: artifactID, Content: content, Metadata: metadata}, nil
}

// ListArtifacts lists artifact metadata for a task, newest first
func (g *LocalStorageGateway) ListArtifacts(ctx context.Context, taskID string) ([]*output.ArtifactMetadata, error) {
	taskDir := filepath.Join(g.baseDir, "artifacts", taskID)

	entries, err := os.ReadDir(taskDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task directory: %w", err)
	}

	var metadataList []*output.ArtifactMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadataJSON, err := os.ReadFile(filepath.Join(taskDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var metadata output.ArtifactMetadata
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			continue
		}
		metadataList = append(metadataList, &metadata)
	}

	return metadataList, nil
}
