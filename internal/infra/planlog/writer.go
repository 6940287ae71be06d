package planlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
	"github.com/YoshitsuguKoike/devtask/internal/infra/fs"
)

// ErrPlanNotFound indicates no plan log exists for the given id
var ErrPlanNotFound = errors.New("plan not found")

// Log persists accepted consolidated plans as plan<PLAN_ID>.log files.
// Plan ids are ULIDs: monotonic within a process and collision-free,
// so concurrent histories never reuse an id.
type Log struct {
	dir string
}

// NewLog creates a plan log rooted at dir
func NewLog(dir string) *Log {
	return &Log{dir: dir}
}

func (l *Log) path(planID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("plan%s.log", planID))
}

// Write assigns a fresh plan id and persists the plan atomically.
// Called only on accept; rejected plans never touch disk.
func (l *Log) Write(plan *group.ConsolidatedPlan) (string, error) {
	planID := ulid.Make().String()
	plan.PlanID = planID

	if err := fs.AtomicWriteJSON(l.path(planID), plan); err != nil {
		return "", fmt.Errorf("write plan log: %w", err)
	}
	return planID, nil
}

// Read loads a persisted plan by id
func (l *Log) Read(planID string) (*group.ConsolidatedPlan, error) {
	data, err := os.ReadFile(l.path(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return nil, fmt.Errorf("read plan log: %w", err)
	}

	var plan group.ConsolidatedPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("plan log %s unreadable: %w", planID, err)
	}
	return &plan, nil
}
