package patterncache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/devtask/internal/domain/debug"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "patterns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRecordAndLookup(t *testing.T) {
	c := openTestCache(t)

	sig := debug.NewSignature("test", "assertion failed in /src/api/user_test.go:42: want 200")
	c.Record("task-1", sig, debug.TierQuickFix, debug.OutcomeResolved, "regenerate handler with status check")
	c.Flush()

	// Lookup with a cosmetically different message must still match
	probe := debug.NewSignature("test", "assertion failed in /src/api/order_test.go:7: want 201")
	hit, err := c.Lookup(probe)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 1, hit.OccurrenceCount)
	assert.Equal(t, 1.0, hit.SuccessRate)
	assert.Equal(t, "regenerate handler with status check", hit.KnownFix)
}

func TestLookupCategoryIsolation(t *testing.T) {
	c := openTestCache(t)

	sig := debug.NewSignature("lint", "unused variable total")
	c.Record("task-1", sig, debug.TierQuickFix, debug.OutcomeResolved, "")
	c.Flush()

	probe := debug.NewSignature("typecheck", "unused variable total")
	hit, err := c.Lookup(probe)
	require.NoError(t, err)
	assert.Nil(t, hit, "category mismatch must not match")
}

func TestOccurrenceAndSuccessRateAccumulate(t *testing.T) {
	c := openTestCache(t)

	sig := debug.NewSignature("build", "undefined reference to renderPage")
	c.Record("task-1", sig, debug.TierQuickFix, debug.OutcomeEscalate, "")
	c.Record("task-1", sig, debug.TierFullDebug, debug.OutcomeResolved, "add missing import")
	c.Record("task-2", sig, debug.TierQuickFix, debug.OutcomeResolved, "")
	c.Flush()

	hit, err := c.Lookup(sig)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 3, hit.OccurrenceCount)
	assert.InDelta(t, 2.0/3.0, hit.SuccessRate, 0.001)
	// Known fix survives later records without one
	assert.Equal(t, "add missing import", hit.KnownFix)
}

func TestPruneDualCondition(t *testing.T) {
	c := openTestCache(t)
	now := time.Now().UTC()

	oldRare := debug.NewSignature("test", "flaky timeout waiting for channel")
	oldFrequent := debug.NewSignature("test", "nil pointer in session handler")
	recent := debug.NewSignature("test", "missing fixture file for parser")

	c.Record("t", oldRare, debug.TierQuickFix, debug.OutcomeEscalate, "")
	for i := 0; i < debug.MinOccurrences; i++ {
		c.Record("t", oldFrequent, debug.TierQuickFix, debug.OutcomeResolved, "")
	}
	c.Record("t", recent, debug.TierQuickFix, debug.OutcomeEscalate, "")
	c.Flush()

	// Age the first two beyond the retention window
	stale := now.Add(-debug.RetentionWindow - 24*time.Hour)
	for _, sig := range []debug.Signature{oldRare, oldFrequent} {
		_, err := c.db.Exec(`UPDATE error_patterns SET last_seen = ? WHERE signature_key = ?`, stale, sig.Key())
		require.NoError(t, err)
	}

	n, err := c.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the old-and-rare entry is pruned")

	gone, err := c.Lookup(oldRare)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := c.Lookup(oldFrequent)
	require.NoError(t, err)
	assert.NotNil(t, kept, "old but frequent entries survive")
}

func TestPruneSkipsPinned(t *testing.T) {
	c := openTestCache(t)
	now := time.Now().UTC()

	sig := debug.NewSignature("test", "race detected in worker pool shutdown")
	c.Record("t", sig, debug.TierFullDebug, debug.OutcomeEscalate, "")
	c.Flush()

	stale := now.Add(-debug.RetentionWindow - 24*time.Hour)
	_, err := c.db.Exec(`UPDATE error_patterns SET last_seen = ? WHERE signature_key = ?`, stale, sig.Key())
	require.NoError(t, err)

	c.Pin(sig)
	n, err := c.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "pinned entry must survive pruning")

	c.Unpin(sig)
	n, err = c.Prune(now)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "unpinned stale entry is pruned")
}

func TestAttemptHistory(t *testing.T) {
	c := openTestCache(t)

	first := debug.NewSignature("typecheck", "cannot use string as int in argument")
	second := debug.NewSignature("test", "want 5 got 3 in totals")
	c.Record("task-9", first, debug.TierQuickFix, debug.OutcomeEscalate, "")
	c.Record("task-9", second, debug.TierQuickFix, debug.OutcomeResolved, "")
	c.Record("other-task", first, debug.TierQuickFix, debug.OutcomeResolved, "")
	c.Flush()

	history, err := c.AttemptHistory("task-9")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, debug.OutcomeEscalate, history[0].Outcome)
	assert.Equal(t, debug.OutcomeResolved, history[1].Outcome)
	assert.Equal(t, "typecheck", history[0].Signature.Category)
}
