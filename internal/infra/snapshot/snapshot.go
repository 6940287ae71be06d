package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/devtask/internal/application/port/output"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
	"github.com/YoshitsuguKoike/devtask/internal/domain/group"
	"github.com/YoshitsuguKoike/devtask/internal/domain/task"
)

// SchemaVersion is bumped whenever the snapshot layout changes in a
// way old readers cannot handle. A mismatch on load surfaces as
// ErrCorrupt rather than a silent discard.
const SchemaVersion = 1

var (
	// ErrNotFound indicates no snapshot exists for the task
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt indicates an unreadable or schema-mismatched snapshot.
	// Resumption aborts for the task and the error is surfaced to the
	// user; the snapshot is kept for inspection.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// TaskRecord carries the task fields needed to rehydrate a Task on resume
type TaskRecord struct {
	ID              task.ID     `json:"id"`
	OriginalRequest string      `json:"original_request"`
	Status          task.Status `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Snapshot is one durable record per task per phase. The payload is a
// tagged union: its concrete type is determined by Phase and validated
// at the decode boundary.
type Snapshot struct {
	TaskID    task.ID         `json:"task_id"`
	Phase     task.Phase      `json:"phase"`
	SubState  string          `json:"sub_state,omitempty"`
	Task      TaskRecord      `json:"task"`
	Payload   json.RawMessage `json:"payload"`
	Version   int             `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
}

// RehydrateTask rebuilds the domain task from the snapshot record
func (s *Snapshot) RehydrateTask() (*task.Task, error) {
	t, err := task.Rehydrate(s.Task.ID, s.Task.OriginalRequest, s.Phase, s.Task.Status, s.Task.CreatedAt, s.Task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return t, nil
}

// PrePlanningPayload is the snapshot payload while decomposing the request
type PrePlanningPayload struct {
	Attempts int `json:"attempts"`
}

// GatePayload is the snapshot payload at the complexity gate
type GatePayload struct {
	Decomposition *output.Decomposition `json:"decomposition"`
}

// GroupProcessingPayload is the snapshot payload during sequential
// group review. Resumption re-enters at NextGroupIndex; finalized
// groups before it are never reprocessed.
type GroupProcessingPayload struct {
	Decomposition  *output.Decomposition `json:"decomposition"`
	Groups         []*group.FeatureGroup `json:"groups"`
	NextGroupIndex int                   `json:"next_group_index"`
}

// CodeGenPayload is the snapshot payload during the generation and
// validation loop over accepted plans
type CodeGenPayload struct {
	PlanIDs         []string          `json:"plan_ids"`
	PlanIndex       int               `json:"plan_index"`
	Attempt         int               `json:"attempt"`
	StrategicRounds int               `json:"strategic_rounds"`
	History         []debug.Signature `json:"history"`
	// LastFile is the file of the most recent validation failure.
	// Signatures normalize paths away, so it is carried separately for
	// quick-fix targeting.
	LastFile string `json:"last_file,omitempty"`
}

// FinalizationPayload is the snapshot payload entering finalization
type FinalizationPayload struct {
	PlanIDs []string `json:"plan_ids"`
}

// TerminalPayload is the snapshot payload for terminal phases
type TerminalPayload struct {
	Reason string `json:"reason,omitempty"`
}

// payloadPhase maps each payload type to the phase it belongs to
func payloadPhase(payload any) (task.Phase, bool) {
	switch payload.(type) {
	case *PrePlanningPayload, PrePlanningPayload:
		return task.PhasePrePlanning, true
	case *GatePayload, GatePayload:
		return task.PhaseComplexityGate, true
	case *GroupProcessingPayload, GroupProcessingPayload:
		return task.PhaseGroupProcessing, true
	case *CodeGenPayload, CodeGenPayload:
		return task.PhaseCodeGenValidation, true
	case *FinalizationPayload, FinalizationPayload:
		return task.PhaseFinalization, true
	case *TerminalPayload, TerminalPayload:
		return "", true // valid for any terminal phase
	default:
		return "", false
	}
}

// New builds a snapshot for the given task entering the given phase.
// The payload type must match the phase.
func New(t *task.Task, phase task.Phase, subState string, payload any) (*Snapshot, error) {
	wantPhase, known := payloadPhase(payload)
	if !known {
		return nil, fmt.Errorf("unknown snapshot payload type %T", payload)
	}
	if wantPhase != "" && wantPhase != phase {
		return nil, fmt.Errorf("payload %T does not belong to phase %s", payload, phase)
	}
	if wantPhase == "" && !phase.IsTerminal() {
		return nil, fmt.Errorf("terminal payload used for non-terminal phase %s", phase)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &Snapshot{
		TaskID:   t.ID,
		Phase:    phase,
		SubState: subState,
		Task: TaskRecord{
			ID:              t.ID,
			OriginalRequest: t.OriginalRequest,
			Status:          task.StatusForPhase(phase),
			CreatedAt:       t.CreatedAt,
			UpdatedAt:       time.Now().UTC(),
		},
		Payload:   raw,
		Version:   SchemaVersion,
		Timestamp: time.Now().UTC(),
	}, nil
}

// DecodePayload unmarshals the snapshot payload into out after checking
// the phase tag matches
func (s *Snapshot) DecodePayload(out any) error {
	wantPhase, known := payloadPhase(out)
	if !known {
		return fmt.Errorf("unknown snapshot payload type %T", out)
	}
	if wantPhase != "" && wantPhase != s.Phase {
		return fmt.Errorf("%w: payload %T requested for phase %s", ErrCorrupt, out, s.Phase)
	}
	if err := json.Unmarshal(s.Payload, out); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrCorrupt, err)
	}
	return nil
}
