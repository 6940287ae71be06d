package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEscalationPolicyMissingFile(t *testing.T) {
	p, err := LoadEscalationPolicy(filepath.Join(t.TempDir(), "policy.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if p.Tiers.TierFor(1) != debug.TierQuickFix {
		t.Errorf("default table expected, got %s for attempt 1", p.Tiers.TierFor(1))
	}
	if p.Tiers.TierFor(6) != debug.TierStrategicRestart {
		t.Errorf("default table expected, got %s for attempt 6", p.Tiers.TierFor(6))
	}
}

func TestLoadEscalationPolicyCustomTable(t *testing.T) {
	path := writePolicy(t, `
tiers:
  - from: 1
    to: 1
    tier: quick_fix
  - from: 2
    to: 3
    tier: full_debug
  - from: 4
    to: 0
    tier: strategic_restart
`)

	p, err := LoadEscalationPolicy(path)
	if err != nil {
		t.Fatalf("LoadEscalationPolicy failed: %v", err)
	}
	if got := p.Tiers.TierFor(2); got != debug.TierFullDebug {
		t.Errorf("TierFor(2) = %s, want full_debug", got)
	}
	if got := p.Tiers.TierFor(4); got != debug.TierStrategicRestart {
		t.Errorf("TierFor(4) = %s, want strategic_restart", got)
	}
}

func TestLoadEscalationPolicyRejectsInvalidTable(t *testing.T) {
	path := writePolicy(t, `
tiers:
  - from: 1
    to: 2
    tier: full_debug
  - from: 3
    to: 0
    tier: quick_fix
`)

	if _, err := LoadEscalationPolicy(path); err == nil {
		t.Error("tier regression should be rejected")
	}
}

func TestLoadEscalationPolicyRejectsUnknownFields(t *testing.T) {
	path := writePolicy(t, `
tiers:
  - from: 1
    to: 0
    tier: quick_fix
retry_backoff: 5s
`)

	if _, err := LoadEscalationPolicy(path); err == nil {
		t.Error("unknown top-level field should be rejected")
	}
}
