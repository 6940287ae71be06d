package policy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

// EscalationPolicy is the operator-tunable escalation configuration
type EscalationPolicy struct {
	Tiers debug.PolicyTable `yaml:"tiers"`
}

// LoadEscalationPolicy reads policy.yaml from the given path. A missing
// file yields the built-in default table; a present but invalid file is
// an error, never silently replaced by defaults.
func LoadEscalationPolicy(path string) (*EscalationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &EscalationPolicy{Tiers: debug.DefaultPolicyTable()}, nil
		}
		return nil, fmt.Errorf("policy: read: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Fail on unknown fields
	var p EscalationPolicy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("policy: parse: %w", err)
	}

	if len(p.Tiers) == 0 {
		p.Tiers = debug.DefaultPolicyTable()
	}
	if err := p.Tiers.Validate(); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	return &p, nil
}
