package fs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteJSON(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "state.json")

	payload := map[string]any{"phase": "pre_planning", "version": 1}
	if err := AtomicWriteJSON(path, payload); err != nil {
		t.Fatalf("AtomicWriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if got["phase"] != "pre_planning" {
		t.Errorf("expected phase pre_planning, got %v", got["phase"])
	}

	// Temp file must not survive the rename
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after atomic write")
	}
}

func TestAtomicWriteJSONOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "state.json")

	if err := AtomicWriteJSON(path, map[string]int{"version": 1}); err != nil {
		t.Fatal(err)
	}
	if err := AtomicWriteJSON(path, map[string]int{"version": 2}); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["version"] != 2 {
		t.Errorf("expected version 2 after overwrite, got %d", got["version"])
	}
}

func TestAcquireLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "run.lock")

	release, err := AcquireLock(lockPath)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}

	// Second acquisition must fail while held
	if _, err := AcquireLock(lockPath); err == nil {
		t.Error("expected second lock acquisition to fail")
	}

	if err := release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	// Reacquire after release
	release2, err := AcquireLock(lockPath)
	if err != nil {
		t.Fatalf("lock after release failed: %v", err)
	}
	_ = release2()
}
