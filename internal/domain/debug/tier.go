package debug

import (
	"fmt"
)

// Tier is one of three increasingly expensive remediation strategies
// applied to a failing generation attempt
type Tier string

const (
	// TierQuickFix regenerates with minimal context (failing file + message)
	TierQuickFix Tier = "quick_fix"
	// TierFullDebug regenerates with multi-file context plus reasoning
	// extracted from prior attempts
	TierFullDebug Tier = "full_debug"
	// TierStrategicRestart abandons incremental fixes for one of the
	// restart strategies
	TierStrategicRestart Tier = "strategic_restart"
)

// String returns the string representation of the tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is recognized
func (t Tier) IsValid() bool {
	switch t {
	case TierQuickFix, TierFullDebug, TierStrategicRestart:
		return true
	default:
		return false
	}
}

// rank orders tiers by cost for the monotonicity check
func (t Tier) rank() int {
	switch t {
	case TierQuickFix:
		return 1
	case TierFullDebug:
		return 2
	case TierStrategicRestart:
		return 3
	default:
		return 0
	}
}

// TierRange maps an inclusive attempt range to a tier. To == 0 means
// unbounded (6+).
type TierRange struct {
	From int  `yaml:"from"`
	To   int  `yaml:"to"`
	Tier Tier `yaml:"tier"`
}

// PolicyTable is the ordered attempt-range -> tier table. Keeping the
// escalation policy as data rather than nested conditionals makes it
// auditable and testable in isolation.
type PolicyTable []TierRange

// DefaultPolicyTable returns the built-in escalation table:
// attempts 1-2 quick fix, 3-5 full debug, 6+ strategic restart.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		{From: 1, To: 2, Tier: TierQuickFix},
		{From: 3, To: 5, Tier: TierFullDebug},
		{From: 6, To: 0, Tier: TierStrategicRestart},
	}
}

// Validate checks the table covers attempts from 1 upward with no gaps,
// no overlaps, and non-decreasing tiers. Only the last range may be
// unbounded, and it must be.
func (p PolicyTable) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("escalation table is empty")
	}
	if p[0].From != 1 {
		return fmt.Errorf("escalation table must start at attempt 1, got %d", p[0].From)
	}
	for i, r := range p {
		if !r.Tier.IsValid() {
			return fmt.Errorf("range %d: unknown tier %q", i, r.Tier)
		}
		last := i == len(p)-1
		if last {
			if r.To != 0 {
				return fmt.Errorf("last range must be unbounded (to: 0), got to=%d", r.To)
			}
		} else {
			if r.To < r.From {
				return fmt.Errorf("range %d: to (%d) before from (%d)", i, r.To, r.From)
			}
			if p[i+1].From != r.To+1 {
				return fmt.Errorf("range %d and %d are not contiguous", i, i+1)
			}
			if p[i+1].Tier.rank() < r.Tier.rank() {
				return fmt.Errorf("tier regresses from %s to %s", r.Tier, p[i+1].Tier)
			}
		}
	}
	return nil
}

// TierFor selects the tier for the given 1-based attempt index
func (p PolicyTable) TierFor(attempt int) Tier {
	if attempt < 1 {
		attempt = 1
	}
	for _, r := range p {
		if attempt >= r.From && (r.To == 0 || attempt <= r.To) {
			return r.Tier
		}
	}
	// Validated tables always end unbounded; fall back defensively
	return p[len(p)-1].Tier
}

// RestartStrategy is the sub-choice made inside a strategic restart
type RestartStrategy string

const (
	// StrategyRegenerate re-implements under the same accepted plan
	StrategyRegenerate RestartStrategy = "regenerate_implementation"
	// StrategyRedesign regenerates the plan itself
	StrategyRedesign RestartStrategy = "redesign_plan"
	// StrategyModifyRequest asks the user for a modified original request
	StrategyModifyRequest RestartStrategy = "modify_request"
)

// String returns the string representation of the strategy
func (s RestartStrategy) String() string {
	return string(s)
}

// ChooseRestartStrategy picks the restart strategy from the error
// history of this chain. Repetition of one signature means the plan
// itself is wrong (redesign); novel errors mean the implementation is
// the problem (regenerate). A second strategic round escalates to a
// modified request.
func ChooseRestartStrategy(history []Signature, strategicRounds int) RestartStrategy {
	if strategicRounds >= 1 {
		return StrategyModifyRequest
	}
	if len(history) < 2 {
		return StrategyRegenerate
	}
	last := history[len(history)-1]
	repeats := 0
	for _, sig := range history[:len(history)-1] {
		if sig.Matches(last) {
			repeats++
		}
	}
	if repeats >= len(history)/2 {
		return StrategyRedesign
	}
	return StrategyRegenerate
}
