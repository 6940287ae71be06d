package service

import (
	"fmt"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

// PatternCache is the escalation-facing view of the error pattern
// cache. Record is fire-and-forget.
type PatternCache interface {
	Lookup(sig debug.Signature) (*debug.Pattern, error)
	Record(taskID string, sig debug.Signature, tier debug.Tier, outcome debug.Outcome, knownFix string)
	AttemptHistory(taskID string) ([]debug.Attempt, error)
	Pin(sig debug.Signature)
	Unpin(sig debug.Signature)
}

// EscalationAction tells the code generation loop how to run the next
// attempt
type EscalationAction struct {
	Tier     debug.Tier
	Strategy debug.RestartStrategy // set for strategic restarts only
	KnownFix string                // set when the cache short-circuits
}

// EscalationService selects the remediation tier for a failing attempt.
// Selection is purely a function of the error signature and attempt
// index, which makes the escalation state trivially resumable from a
// snapshot.
type EscalationService struct {
	table debug.PolicyTable
	cache PatternCache
}

// NewEscalationService creates the service with a validated tier table
func NewEscalationService(table debug.PolicyTable, cache PatternCache) (*EscalationService, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &EscalationService{table: table, cache: cache}, nil
}

// Decide selects the action for the given 1-based attempt. history is
// the signature chain of prior failures on this plan; strategicRounds
// counts strategic restarts already consumed.
func (s *EscalationService) Decide(attempt int, last debug.Signature, history []debug.Signature, strategicRounds int) EscalationAction {
	action := EscalationAction{Tier: s.table.TierFor(attempt)}

	if action.Tier == debug.TierStrategicRestart {
		action.Strategy = debug.ChooseRestartStrategy(history, strategicRounds)
	}

	// A reliable cached pattern short-circuits to its known-good fix
	// before the tier runs. Cache misses or errors never block the
	// attempt.
	if s.cache != nil {
		pattern, err := s.cache.Lookup(last)
		if err != nil {
			app.GetLogger().Warn("pattern cache lookup failed: %v", err)
		} else if pattern != nil && pattern.Reliable() && pattern.KnownFix != "" {
			action.KnownFix = pattern.KnownFix
		}
	}

	return action
}

// RecordFailure registers a failed attempt with the cache and pins the
// signature so pruning cannot remove it while the chain is in flight.
// The returned release function unpins.
func (s *EscalationService) RecordFailure(taskID string, sig debug.Signature, tier debug.Tier) (release func()) {
	if s.cache == nil {
		return func() {}
	}
	s.cache.Pin(sig)
	s.cache.Record(taskID, sig, tier, debug.OutcomeEscalate, "")
	return func() { s.cache.Unpin(sig) }
}

// RecordResolution registers the attempt that cleared the error chain,
// remembering the fix for future short-circuits
func (s *EscalationService) RecordResolution(taskID string, sig debug.Signature, tier debug.Tier, fix string) {
	if s.cache == nil {
		return
	}
	s.cache.Record(taskID, sig, tier, debug.OutcomeResolved, fix)
}

// RecordAbandon registers a chain given up on
func (s *EscalationService) RecordAbandon(taskID string, sig debug.Signature, tier debug.Tier) {
	if s.cache == nil {
		return
	}
	s.cache.Record(taskID, sig, tier, debug.OutcomeAbandon, "")
}

// PriorAttempts summarizes every attempt recorded for the task, oldest
// first, for the deeper tiers' reasoning context. Cache errors degrade
// to an empty summary.
func (s *EscalationService) PriorAttempts(taskID string) []string {
	if s.cache == nil {
		return nil
	}
	attempts, err := s.cache.AttemptHistory(taskID)
	if err != nil {
		app.GetLogger().Warn("attempt history lookup failed: %v", err)
		return nil
	}
	out := make([]string, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, fmt.Sprintf("%s (%s): %s", a.Tier, a.Outcome, a.Signature.Message))
	}
	return out
}
