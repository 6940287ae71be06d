package config

import "time"

// Config provides read-only access to application configuration.
// This interface abstracts the configuration source (JSON, defaults)
// and ensures the app layer doesn't depend on infrastructure details.
type Config interface {
	// Core settings
	Home() string           // Base directory for devtask (DEVTASK_HOME)
	AgentBin() string       // Agent binary path
	AgentType() string      // Agent gateway type (claude-code-cli, mock)
	TimeoutSec() int        // External call timeout in seconds
	Timeout() time.Duration // External call timeout as Duration

	// Orchestration limits
	PlanningAttempts() int    // Max pre-planning attempts before the task fails
	CodeGenAttempts() int     // Max generate/validate attempts per plan
	ModificationCap() int     // Max plan modification cycles per feature group
	ComplexityThreshold() int // Score above which the complexity gate blocks

	// Forced-decision policy when the modification cap is exceeded:
	// "prompt" (default), "auto-accept", or "auto-reject"
	ForcedDecision() string

	// Archive storage
	ArchiveBucket() string // S3 bucket for uploaded archives; empty = local only
	ArchivePrefix() string // Optional S3 key prefix
	ArchiveRegion() string // AWS region override

	// Interaction
	AutoApprove() bool // Replace interactive prompts with defaults

	// Metadata
	ConfigSource() string // Source of configuration: "json" or "default"
	SettingPath() string  // Path to setting.json if loaded from file
}

// AppConfig is the concrete implementation of Config interface
type AppConfig struct {
	home       string
	agentBin   string
	agentType  string
	timeoutSec int

	planningAttempts    int
	codeGenAttempts     int
	modificationCap     int
	complexityThreshold int
	forcedDecision      string

	archiveBucket string
	archivePrefix string
	archiveRegion string

	autoApprove bool

	configSource string
	settingPath  string
}

// NewAppConfig creates an AppConfig with the given values
func NewAppConfig(
	home, agentBin, agentType string,
	timeoutSec int,
	planningAttempts, codeGenAttempts, modificationCap, complexityThreshold int,
	forcedDecision string,
	archiveBucket, archivePrefix, archiveRegion string,
	autoApprove bool,
	configSource, settingPath string,
) *AppConfig {
	return &AppConfig{
		home:                home,
		agentBin:            agentBin,
		agentType:           agentType,
		timeoutSec:          timeoutSec,
		planningAttempts:    planningAttempts,
		codeGenAttempts:     codeGenAttempts,
		modificationCap:     modificationCap,
		complexityThreshold: complexityThreshold,
		forcedDecision:      forcedDecision,
		archiveBucket:       archiveBucket,
		archivePrefix:       archivePrefix,
		archiveRegion:       archiveRegion,
		autoApprove:         autoApprove,
		configSource:        configSource,
		settingPath:         settingPath,
	}
}

func (c *AppConfig) Home() string      { return c.home }
func (c *AppConfig) AgentBin() string  { return c.agentBin }
func (c *AppConfig) AgentType() string { return c.agentType }
func (c *AppConfig) TimeoutSec() int   { return c.timeoutSec }

// Timeout returns the execution timeout as a Duration
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.timeoutSec) * time.Second
}

func (c *AppConfig) PlanningAttempts() int    { return c.planningAttempts }
func (c *AppConfig) CodeGenAttempts() int     { return c.codeGenAttempts }
func (c *AppConfig) ModificationCap() int     { return c.modificationCap }
func (c *AppConfig) ComplexityThreshold() int { return c.complexityThreshold }
func (c *AppConfig) ForcedDecision() string   { return c.forcedDecision }

func (c *AppConfig) ArchiveBucket() string { return c.archiveBucket }
func (c *AppConfig) ArchivePrefix() string { return c.archivePrefix }
func (c *AppConfig) ArchiveRegion() string { return c.archiveRegion }

func (c *AppConfig) AutoApprove() bool { return c.autoApprove }

func (c *AppConfig) ConfigSource() string { return c.configSource }
func (c *AppConfig) SettingPath() string  { return c.settingPath }
