package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/devtask/internal/adapter/gateway/storage"
	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
	"github.com/YoshitsuguKoike/devtask/internal/infra/patterncache"
	"github.com/YoshitsuguKoike/devtask/internal/infra/snapshot"
)

func newClearCmd() *cobra.Command {
	var force bool
	var prune bool

	cmd := &cobra.Command{
		Use:   "clear <task-id>",
		Short: "Archive a task's snapshots and plans",
		Long: `Clear moves a task's snapshots into a timestamped directory under
var/archive and stores a gzipped tarball of it: in S3 when a bucket is
configured, under var/archive locally otherwise.

Clearing an active task is refused unless --force is given. --prune
additionally deletes stale entries from the error pattern cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := task.ID(args[0])
			store := snapshot.NewStore(afero.NewOsFs(), globalPaths.Snapshots)

			snap, err := store.Latest(id)
			if err != nil {
				return err
			}
			if snap.Task.Status == task.StatusActive && !force {
				return fmt.Errorf("task %s is active (phase %s); use --force to clear anyway", id, snap.Phase)
			}

			dirName := fmt.Sprintf("%s_%s", time.Now().Format("2006-01-02T15-04-05"), ulid.Make())
			archiveDir := filepath.Join(globalPaths.Archive, dirName)

			if err := store.Archive(id, archiveDir); err != nil {
				return fmt.Errorf("archive snapshots: %w", err)
			}
			app.GetLogger().Info("archived task %s to %s", id, archiveDir)

			if err := uploadArchive(cmd, id, archiveDir); err != nil {
				return fmt.Errorf("store archive: %w", err)
			}

			if prune {
				if err := pruneCache(); err != nil {
					return err
				}
			}

			fmt.Printf("cleared task %s (archive: %s)\n", id, archiveDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear even if the task is active")
	cmd.Flags().BoolVar(&prune, "prune", false, "Also prune stale error patterns from the cache")
	return cmd
}

// uploadArchive tars the archive directory and ships it through a
// storage gateway: S3 when a bucket is configured, the local gateway
// under var/archive otherwise
func uploadArchive(cmd *cobra.Command, id task.ID, archiveDir string) error {
	content, err := tarDirectory(archiveDir)
	if err != nil {
		return err
	}

	var gw output.StorageGateway
	if bucket := globalConfig.ArchiveBucket(); bucket != "" {
		gw, err = storage.NewS3StorageGateway(cmd.Context(), storage.S3Config{
			Bucket: bucket,
			Prefix: globalConfig.ArchivePrefix(),
			Region: globalConfig.ArchiveRegion(),
		})
	} else {
		gw, err = storage.NewLocalStorageGateway(globalPaths.Archive)
	}
	if err != nil {
		return err
	}

	meta, err := gw.SaveArtifact(cmd.Context(), output.SaveArtifactRequest{
		TaskID:       id.String(),
		ArtifactType: output.ArtifactTypeArchive,
		Content:      content,
		ContentType:  "application/gzip",
		Metadata:     map[string]string{"archive_dir": filepath.Base(archiveDir)},
	})
	if err != nil {
		return err
	}
	app.GetLogger().Info("stored archive for task %s at %s", id, meta.StoragePath)
	return nil
}

// tarDirectory packs a directory into a gzipped tarball in memory
func tarDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name:    filepath.ToSlash(rel),
			Mode:    int64(info.Mode().Perm()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pruneCache() error {
	cache, err := patterncache.Open(globalPaths.CacheDB)
	if err != nil {
		return err
	}
	defer cache.Close()

	removed, err := cache.Prune(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("prune pattern cache: %w", err)
	}
	fmt.Printf("pruned %d stale error patterns\n", removed)
	return nil
}
