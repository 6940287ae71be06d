package debug

import "time"

// Outcome records how a debug attempt ended
type Outcome string

const (
	OutcomeResolved Outcome = "resolved"
	OutcomeEscalate Outcome = "escalate"
	OutcomeAbandon  Outcome = "abandon"
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}

// IsValid returns true if the outcome is recognized
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeResolved, OutcomeEscalate, OutcomeAbandon:
		return true
	default:
		return false
	}
}

// Attempt is one escalation attempt appended during the
// generate/validate loop and consulted for future matching
type Attempt struct {
	Signature Signature `json:"error_signature"`
	Tier      Tier      `json:"tier_used"`
	Outcome   Outcome   `json:"outcome"`
	Timestamp time.Time `json:"timestamp"`
}

// Pattern is an aggregated view of a recurring error signature
type Pattern struct {
	Signature       Signature `json:"signature"`
	OccurrenceCount int       `json:"occurrence_count"`
	LastSeen        time.Time `json:"last_seen"`
	SuccessRate     float64   `json:"success_rate"`
	// KnownFix is the remembered resolution for short-circuiting
	// escalation when the pattern is reliable
	KnownFix string `json:"known_fix,omitempty"`
}

// Pruning policy: entries older than the retention window AND below
// the minimum occurrence count are removed. The dual condition keeps
// rare-but-valuable high-confidence patterns.
const (
	RetentionWindow = 7 * 24 * time.Hour
	MinOccurrences  = 5
)

// Prunable reports whether the pattern may be discarded at the given time
func (p Pattern) Prunable(now time.Time) bool {
	return now.Sub(p.LastSeen) > RetentionWindow && p.OccurrenceCount < MinOccurrences
}

// Reliable reports whether the pattern is trustworthy enough to
// short-circuit escalation with its known-good fix
func (p Pattern) Reliable() bool {
	return p.OccurrenceCount >= MinOccurrences && p.SuccessRate >= 0.8
}
