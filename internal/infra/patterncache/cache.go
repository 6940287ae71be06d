package patterncache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/devtask/internal/app"
	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

// Cache is the frequency/recency-indexed store of error signatures and
// their resolution outcomes. Writes are fire-and-forget: losing a
// recent entry only slows future escalation, it never affects
// correctness, so Record enqueues and returns immediately.
type Cache struct {
	db *sql.DB

	mu     sync.Mutex
	pinned map[string]int // signature key -> in-flight attempt count

	records   chan recordEntry
	done      chan struct{}
	closeOnce sync.Once
}

type recordEntry struct {
	taskID   string
	sig      debug.Signature
	tier     debug.Tier
	outcome  debug.Outcome
	knownFix string
	ack      chan struct{} // set only for flush markers
}

// Open opens (creating if needed) the cache database at path
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open pattern cache: %w", err)
	}
	if err := NewMigrator(db).Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	c := &Cache{
		db:      db,
		pinned:  make(map[string]int),
		records: make(chan recordEntry, 64),
		done:    make(chan struct{}),
	}
	go c.writer()
	return c, nil
}

// writer is the single goroutine applying queued records
func (c *Cache) writer() {
	defer close(c.done)
	for entry := range c.records {
		if entry.ack != nil {
			close(entry.ack)
			continue
		}
		if err := c.apply(entry); err != nil {
			app.GetLogger().Warn("pattern cache record failed: %v", err)
		}
	}
}

// apply upserts the pattern row and appends the attempt
func (c *Cache) apply(entry recordEntry) error {
	now := time.Now().UTC()
	success := 0
	if entry.outcome == debug.OutcomeResolved {
		success = 1
	}

	_, err := c.db.Exec(`
		INSERT INTO error_patterns (signature_key, category, message, occurrence_count, success_count, known_fix, last_seen)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(signature_key) DO UPDATE SET
			occurrence_count = occurrence_count + 1,
			success_count = success_count + excluded.success_count,
			known_fix = CASE WHEN excluded.known_fix != '' THEN excluded.known_fix ELSE known_fix END,
			last_seen = excluded.last_seen`,
		entry.sig.Key(), entry.sig.Category, entry.sig.Message, success, entry.knownFix, now)
	if err != nil {
		return fmt.Errorf("upsert pattern: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO debug_attempts (task_id, signature_key, tier, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.taskID, entry.sig.Key(), entry.tier.String(), entry.outcome.String(), now)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Record enqueues an attempt outcome. Never blocks the orchestrator:
// when the queue is full the entry is dropped with a warning.
func (c *Cache) Record(taskID string, sig debug.Signature, tier debug.Tier, outcome debug.Outcome, knownFix string) {
	select {
	case c.records <- recordEntry{taskID: taskID, sig: sig, tier: tier, outcome: outcome, knownFix: knownFix}:
	default:
		app.GetLogger().Warn("pattern cache queue full, dropping record for %s", sig.Key())
	}
}

// Flush blocks until all records queued before the call are applied
func (c *Cache) Flush() {
	ack := make(chan struct{})
	select {
	case c.records <- recordEntry{ack: ack}:
		<-ack
	case <-c.done:
	}
}

// Lookup finds the best matching pattern for the signature using
// category plus normalized-message similarity, not exact string match
func (c *Cache) Lookup(sig debug.Signature) (*debug.Pattern, error) {
	rows, err := c.db.Query(`
		SELECT signature_key, category, message, occurrence_count, success_count, known_fix, last_seen
		FROM error_patterns WHERE category = ?`, sig.Category)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var best *debug.Pattern
	var bestScore float64

	for rows.Next() {
		var key, category, message, knownFix string
		var occurrences, successes int
		var lastSeen time.Time
		if err := rows.Scan(&key, &category, &message, &occurrences, &successes, &knownFix, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}

		candidate := debug.Signature{Category: category, Message: message}
		score := sig.Similarity(candidate)
		if score < debug.MatchThreshold || score <= bestScore {
			continue
		}

		rate := 0.0
		if occurrences > 0 {
			rate = float64(successes) / float64(occurrences)
		}
		best = &debug.Pattern{
			Signature:       candidate,
			OccurrenceCount: occurrences,
			LastSeen:        lastSeen,
			SuccessRate:     rate,
			KnownFix:        knownFix,
		}
		bestScore = score
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return best, nil
}

// Pin marks a signature as referenced by an in-flight attempt so
// pruning never removes it mid-use
func (c *Cache) Pin(sig debug.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[sig.Key()]++
}

// Unpin releases an in-flight reference
func (c *Cache) Unpin(sig debug.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned[sig.Key()] <= 1 {
		delete(c.pinned, sig.Key())
	} else {
		c.pinned[sig.Key()]--
	}
}

// Prune removes entries older than the retention window that never
// became frequent. Pinned signatures are always kept.
func (c *Cache) Prune(now time.Time) (int, error) {
	rows, err := c.db.Query(`SELECT signature_key, last_seen, occurrence_count FROM error_patterns`)
	if err != nil {
		return 0, fmt.Errorf("prune patterns: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var key string
		var p debug.Pattern
		if err := rows.Scan(&key, &p.LastSeen, &p.OccurrenceCount); err != nil {
			return 0, err
		}
		if p.Prunable(now) && !c.isPinned(key) {
			stale = append(stale, key)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range stale {
		if _, err := c.db.Exec(`DELETE FROM error_patterns WHERE signature_key = ?`, key); err != nil {
			return removed, fmt.Errorf("prune patterns: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) isPinned(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinned[key] > 0
}

// AttemptHistory returns the recorded attempts for a task, oldest first
func (c *Cache) AttemptHistory(taskID string) ([]debug.Attempt, error) {
	rows, err := c.db.Query(`
		SELECT a.signature_key, a.tier, a.outcome, a.created_at, p.category, p.message
		FROM debug_attempts a
		LEFT JOIN error_patterns p ON p.signature_key = a.signature_key
		WHERE a.task_id = ? ORDER BY a.id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []debug.Attempt
	for rows.Next() {
		var key, tier, outcome string
		var createdAt time.Time
		var category, message sql.NullString
		if err := rows.Scan(&key, &tier, &outcome, &createdAt, &category, &message); err != nil {
			return nil, err
		}
		out = append(out, debug.Attempt{
			Signature: debug.Signature{Category: category.String, Message: message.String},
			Tier:      debug.Tier(tier),
			Outcome:   debug.Outcome(outcome),
			Timestamp: createdAt,
		})
	}
	return out, rows.Err()
}

// Close drains queued writes and closes the database
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.records)
	})
	<-c.done
	return c.db.Close()
}
