package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
)

// S3StorageGateway implements StorageGateway using AWS S3.
// Bucket layout: s3://<bucket>/<prefix>/artifacts/<taskID>/<artifactID>/
//   - content: the artifact bytes (e.g. a cleared-task archive tarball)
//   - metadata.json: artifact metadata
type S3StorageGateway struct {
	client S3API
	bucket string
	prefix string // optional key prefix, e.g. "devtask/prod"
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	Bucket string
	Prefix string
	Region string // AWS region (optional, uses default if empty)
}

// NewS3StorageGateway creates an S3-backed storage gateway using the
// default AWS credential chain
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	return &S3StorageGateway{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// NewS3StorageGatewayWithClient creates the gateway with a custom S3
// client, primarily for tests with a mock
func NewS3StorageGatewayWithClient(client S3API, bucket, prefix string) *S3StorageGateway {
	return &S3StorageGateway{client: client, bucket: bucket, prefix: prefix}
}

// SaveArtifact uploads an artifact and its metadata document
func (g *S3StorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	artifactID := ulid.Make().String()
	contentKey := g.key("artifacts", req.TaskID, artifactID, "content")

	s3Metadata := map[string]string{
		"artifact-id":   artifactID,
		"task-id":       req.TaskID,
		"artifact-type": string(req.ArtifactType),
		"uploaded-at":   time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range req.Metadata {
		s3Metadata[k] = v
	}

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(contentKey),
		Body:        bytes.NewReader(req.Content),
		ContentType: aws.String(req.ContentType),
		Metadata:    s3Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("upload to S3: %w", err)
	}

	metadata := output.ArtifactMetadata{
		ID:          artifactID,
		TaskID:      req.TaskID,
		Type:        req.ArtifactType,
		StoragePath: fmt.Sprintf("s3://%s/%s", g.bucket, contentKey),
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		UploadedAt:  time.Now().UTC(),
		Metadata:    req.Metadata,
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(g.key("artifacts", req.TaskID, artifactID, "metadata.json")),
		Body:        bytes.NewReader(metadataJSON),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload metadata to S3: %w", err)
	}

	return &metadata, nil
}

// LoadArtifact retrieves an artifact by id. The task is unknown here,
// so the artifact is located by listing under the artifacts prefix.
func (g *S3StorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	listOutput, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(g.key("artifacts") + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("list S3 objects: %w", err)
	}

	var metadataKey string
	for _, obj := range listOutput.Contents {
		key := aws.ToString(obj.Key)
		if strings.Contains(key, "/"+artifactID+"/") && strings.HasSuffix(key, "metadata.json") {
			metadataKey = key
			break
		}
	}
	if metadataKey == "" {
		return nil, fmt.Errorf("artifact not found: %s", artifactID)
	}

	metadataJSON, err := g.download(ctx, metadataKey)
	if err != nil {
		return nil, fmt.Errorf("download metadata: %w", err)
	}
	var metadata output.ArtifactMetadata
	if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	contentKey := strings.TrimSuffix(metadataKey, "metadata.json") + "content"
	content, err := g.download(ctx, contentKey)
	if err != nil {
		return nil, fmt.Errorf("download content: %w", err)
	}

	return &output.Artifact{ID: artifactID, Content: content, Metadata: metadata}, nil
}

// ListArtifacts lists artifact metadata for a task
func (g *S3StorageGateway) ListArtifacts(ctx context.Context, taskID string) ([]*output.ArtifactMetadata, error) {
	listOutput, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(g.key("artifacts", taskID) + "/"),
	})
	if err != nil {
		return nil, fmt.Errorf("list S3 objects: %w", err)
	}

	var metadataList []*output.ArtifactMetadata
	for _, obj := range listOutput.Contents {
		key := aws.ToString(obj.Key)
		if !strings.HasSuffix(key, "metadata.json") {
			continue
		}

		metadataJSON, err := g.download(ctx, key)
		if err != nil {
			// Skip artifacts with unreadable metadata
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

// DeleteArtifact removes an artifact's content and metadata
func (g *S3StorageGateway) DeleteArtifact(ctx context.Context, taskID, artifactID string) error {
	for _, name := range []string{"content", "metadata.json"} {
		_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.bucket),
			Key:    aws.String(g.key("artifacts", taskID, artifactID, name)),
		})
		if err != nil {
			return fmt.Errorf("delete %s from S3: %w", name, err)
		}
	}
	return nil
}

func (g *S3StorageGateway) download(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()
	return io.ReadAll(obj.Body)
}

func (g *S3StorageGateway) key(parts ...string) string {
	if g.prefix != "" {
		parts = append([]string{g.prefix}, parts...)
	}
	return path.Join(parts...)
}
