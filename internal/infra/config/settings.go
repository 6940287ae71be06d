package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/YoshitsuguKoike/devtask/internal/app/config"
)

// RawSettings represents the structure of setting.json file.
// Pointer fields distinguish "absent" from zero values so defaults
// only fill what the user left out.
type RawSettings struct {
	// Core settings
	Home       *string `json:"home"`
	AgentBin   *string `json:"agent_bin"`
	AgentType  *string `json:"agent_type"`
	TimeoutSec *int    `json:"timeout_sec"`

	// Orchestration limits
	PlanningAttempts    *int `json:"planning_attempts"`
	CodeGenAttempts     *int `json:"codegen_attempts"`
	ModificationCap     *int `json:"modification_cap"`
	ComplexityThreshold *int `json:"complexity_threshold"`

	ForcedDecision *string `json:"forced_decision"`

	// Archive storage
	ArchiveBucket *string `json:"archive_bucket"`
	ArchivePrefix *string `json:"archive_prefix"`
	ArchiveRegion *string `json:"archive_region"`

	AutoApprove *bool `json:"auto_approve"`
}

// LoadSettings loads configuration from setting.json under baseDir.
// Priority: setting.json > defaults
func LoadSettings(baseDir string) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	jsonPath := filepath.Join(baseDir, "etc", "setting.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", jsonPath, err)
		}
		configSource = "json"
		settingPath = jsonPath
	}

	applyDefaults(settings, baseDir)

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	return buildAppConfig(settings, configSource, settingPath), nil
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(settings *RawSettings, baseDir string) {
	if settings.Home == nil {
		v := baseDir
		settings.Home = &v
	}
	if settings.AgentBin == nil {
		v := "claude"
		settings.AgentBin = &v
	}
	if settings.AgentType == nil {
		v := "claude-code-cli"
		settings.AgentType = &v
	}
	if settings.TimeoutSec == nil {
		v := 900 // 15 minutes for long planning/generation calls
		settings.TimeoutSec = &v
	}

	if settings.PlanningAttempts == nil {
		v := 3
		settings.PlanningAttempts = &v
	}
	if settings.CodeGenAttempts == nil {
		v := 3
		settings.CodeGenAttempts = &v
	}
	if settings.ModificationCap == nil {
		v := 3
		settings.ModificationCap = &v
	}
	if settings.ComplexityThreshold == nil {
		v := 7
		settings.ComplexityThreshold = &v
	}
	if settings.ForcedDecision == nil {
		v := "prompt"
		settings.ForcedDecision = &v
	}

	if settings.ArchiveBucket == nil {
		v := ""
		settings.ArchiveBucket = &v
	}
	if settings.ArchivePrefix == nil {
		v := ""
		settings.ArchivePrefix = &v
	}
	if settings.ArchiveRegion == nil {
		v := ""
		settings.ArchiveRegion = &v
	}

	if settings.AutoApprove == nil {
		v := false
		settings.AutoApprove = &v
	}
}

// validateSettings rejects values the orchestrator cannot run with
func validateSettings(settings *RawSettings) error {
	if *settings.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_sec must be positive, got %d", *settings.TimeoutSec)
	}
	if *settings.PlanningAttempts < 1 {
		return fmt.Errorf("planning_attempts must be at least 1, got %d", *settings.PlanningAttempts)
	}
	if *settings.CodeGenAttempts < 1 {
		return fmt.Errorf("codegen_attempts must be at least 1, got %d", *settings.CodeGenAttempts)
	}
	if *settings.ModificationCap < 0 {
		return fmt.Errorf("modification_cap must not be negative, got %d", *settings.ModificationCap)
	}
	switch *settings.ForcedDecision {
	case "prompt", "auto-accept", "auto-reject":
	default:
		return fmt.Errorf("forced_decision must be prompt, auto-accept, or auto-reject, got %q", *settings.ForcedDecision)
	}
	return nil
}

// buildAppConfig constructs the AppConfig from validated settings
func buildAppConfig(settings *RawSettings, configSource, settingPath string) *config.AppConfig {
	return config.NewAppConfig(
		*settings.Home,
		*settings.AgentBin,
		*settings.AgentType,
		*settings.TimeoutSec,
		*settings.PlanningAttempts,
		*settings.CodeGenAttempts,
		*settings.ModificationCap,
		*settings.ComplexityThreshold,
		*settings.ForcedDecision,
		*settings.ArchiveBucket,
		*settings.ArchivePrefix,
		*settings.ArchiveRegion,
		*settings.AutoApprove,
		configSource,
		settingPath,
	)
}
