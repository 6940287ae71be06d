package claudecli

import (
	"encoding/json"
	"testing"
)

func TestClaudeResponse_JSON(t *testing.T) {
	raw := `{"type":"result","subtype":"success","is_error":false,"duration_ms":1234,` +
		`"result":"done","session_id":"abc","total_cost_usd":0.01,"uuid":"u-1"}`

	var resp ClaudeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Failed to unmarshal ClaudeResponse: %v", err)
	}

	if resp.Result != "done" {
		t.Errorf("Result mismatch: got %s, want done", resp.Result)
	}
	if resp.IsError {
		t.Error("IsError should be false")
	}
	if resp.DurationMs != 1234 {
		t.Errorf("DurationMs mismatch: got %d, want 1234", resp.DurationMs)
	}
}

func TestClaudeResponse_ErrorFlag(t *testing.T) {
	raw := `{"type":"result","is_error":true,"result":"rate limited"}`

	var resp ClaudeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("Failed to unmarshal ClaudeResponse: %v", err)
	}

	if !resp.IsError {
		t.Error("IsError should be true")
	}
	if resp.Result != "rate limited" {
		t.Errorf("Result mismatch: got %s", resp.Result)
	}
}
