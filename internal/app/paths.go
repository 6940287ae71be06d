package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved paths for the devtask home structure
type Paths struct {
	Home      string // .devtask directory
	Etc       string // .devtask/etc
	Var       string // .devtask/var
	Snapshots string // .devtask/var/task_snapshots
	Plans     string // .devtask/var/plans
	Archive   string // .devtask/var/archive

	// Key files
	Setting string // .devtask/etc/setting.json
	Policy  string // .devtask/etc/policy.yaml
	Journal string // .devtask/var/journal.ndjson
	Status  string // .devtask/var/development_status.json
	CacheDB string // .devtask/var/patterns.db
	RunLock string // .devtask/var/run.lock
}

// ResolvePaths returns all paths based on DEVTASK_HOME environment variable
func ResolvePaths() Paths {
	home := os.Getenv("DEVTASK_HOME")
	if home == "" {
		home = ".devtask"
	}
	return ResolvePathsFrom(home)
}

// ResolvePathsFrom builds the path set rooted at the given home directory
func ResolvePathsFrom(home string) Paths {
	p := Paths{
		Home: home,
		Etc:  filepath.Join(home, "etc"),
		Var:  filepath.Join(home, "var"),
	}

	p.Snapshots = filepath.Join(p.Var, "task_snapshots")
	p.Plans = filepath.Join(p.Var, "plans")
	p.Archive = filepath.Join(p.Var, "archive")

	p.Setting = filepath.Join(p.Etc, "setting.json")
	p.Policy = filepath.Join(p.Etc, "policy.yaml")
	p.Journal = filepath.Join(p.Var, "journal.ndjson")
	p.Status = filepath.Join(p.Var, "development_status.json")
	p.CacheDB = filepath.Join(p.Var, "patterns.db")
	p.RunLock = filepath.Join(p.Var, "run.lock")

	return p
}

// EnsureDirs creates the runtime directories if they do not exist
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.Etc, p.Var, p.Snapshots, p.Plans, p.Archive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
