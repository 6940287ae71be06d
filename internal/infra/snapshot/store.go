package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
)

// Store persists snapshots under <root>/<task_id>/<phase>.json with a
// latest.json pointer per task. All writes are atomic (temp + rename)
// so a crash never leaves a half-written record, and readers never
// observe a partial one.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates a snapshot store rooted at the given directory
func NewStore(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// latestPointer is the content of latest.json
type latestPointer struct {
	Phase     task.Phase `json:"phase"`
	Version   int        `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

func (s *Store) taskDir(id task.ID) string {
	return filepath.Join(s.root, id.String())
}

// writeAtomic writes data via a temp file and rename on the store's fs
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return s.fs.Rename(tmp, path)
}

// Save durably persists the snapshot, then updates the latest pointer.
// The phase record lands before the pointer flips, so a crash between
// the two writes leaves the previous latest intact.
func (s *Store) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	phasePath := filepath.Join(s.taskDir(snap.TaskID), snap.Phase.String()+".json")
	if err := s.writeAtomic(phasePath, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	ptr, err := json.Marshal(latestPointer{
		Phase:     snap.Phase,
		Version:   snap.Version,
		Timestamp: snap.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal latest pointer: %w", err)
	}

	ptrPath := filepath.Join(s.taskDir(snap.TaskID), "latest.json")
	if err := s.writeAtomic(ptrPath, ptr); err != nil {
		return fmt.Errorf("write latest pointer: %w", err)
	}

	return nil
}

// Latest loads the most recent snapshot for the task. Unreadable or
// schema-mismatched records return ErrCorrupt; the files stay on disk
// for inspection.
func (s *Store) Latest(id task.ID) (*Snapshot, error) {
	ptrPath := filepath.Join(s.taskDir(id), "latest.json")
	ptrData, err := afero.ReadFile(s.fs, ptrPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}

	var ptr latestPointer
	if err := json.Unmarshal(ptrData, &ptr); err != nil {
		return nil, fmt.Errorf("%w: latest pointer unreadable: %v", ErrCorrupt, err)
	}
	if !ptr.Phase.IsValid() {
		return nil, fmt.Errorf("%w: latest pointer names unknown phase %q", ErrCorrupt, ptr.Phase)
	}

	return s.load(id, ptr.Phase)
}

// load reads one phase record and validates its envelope
func (s *Store) load(id task.ID, phase task.Phase) (*Snapshot, error) {
	path := filepath.Join(s.taskDir(id), phase.String()+".json")
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: phase record %s missing", ErrCorrupt, phase)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrCorrupt, snap.Version, SchemaVersion)
	}
	if snap.TaskID != id {
		return nil, fmt.Errorf("%w: snapshot belongs to task %s", ErrCorrupt, snap.TaskID)
	}
	if snap.Phase != phase {
		return nil, fmt.Errorf("%w: phase record %s contains phase %s", ErrCorrupt, phase, snap.Phase)
	}

	return &snap, nil
}

// Summary is one row of the task listing
type Summary struct {
	TaskID    task.ID     `json:"task_id"`
	Phase     task.Phase  `json:"phase"`
	Status    task.Status `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ListTasks scans the store for tasks with a readable latest snapshot.
// Corrupt entries are reported with an unknown status rather than
// silently skipped.
func (s *Store) ListTasks() ([]Summary, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan snapshot store: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := task.ID(e.Name())
		snap, err := s.Latest(id)
		if err != nil {
			out = append(out, Summary{TaskID: id, Phase: "", Status: "unknown"})
			continue
		}
		out = append(out, Summary{
			TaskID:    snap.TaskID,
			Phase:     snap.Phase,
			Status:    snap.Task.Status,
			UpdatedAt: snap.Timestamp,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Archive moves a task's snapshot directory under destDir
func (s *Store) Archive(id task.ID, destDir string) error {
	src := s.taskDir(id)
	if _, err := s.fs.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: task %s", ErrNotFound, id)
		}
		return err
	}
	if err := s.fs.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return s.fs.Rename(src, filepath.Join(destDir, id.String()))
}
