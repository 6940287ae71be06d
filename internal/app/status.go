package app

import (
	"encoding/json"
	"os"
	"time"
)

// DevelopmentStatus is the aggregate status surface rewritten on every
// phase transition (development_status.json)
type DevelopmentStatus struct {
	TS     string `json:"ts"`
	TaskID string `json:"task_id"`
	Phase  string `json:"phase"`
	Status string `json:"status"`
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
}

// WriteStatus writes the development status to a JSON file
func WriteStatus(path string, taskID, phase, status string, ok bool, errMsg string) error {
	s := DevelopmentStatus{
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
		TaskID: taskID,
		Phase:  phase,
		Status: status,
		OK:     ok,
		Error:  errMsg,
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadStatus loads the development status file
func ReadStatus(path string) (*DevelopmentStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s DevelopmentStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
