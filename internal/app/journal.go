package app

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// JournalEntry is one line of journal.ndjson. One entry is appended for
// every phase transition so external tools can follow task progress.
type JournalEntry struct {
	TS        string   `json:"ts"`
	TaskID    string   `json:"task_id"`
	Phase     string   `json:"phase"`
	Event     string   `json:"event"` // enter, complete, fail, cancel
	Detail    string   `json:"detail,omitempty"`
	ElapsedMs int64    `json:"elapsed_ms"`
	Error     string   `json:"error,omitempty"`
	Artifacts []string `json:"artifacts"`
}

// NormalizeJournalEntry ensures all required fields are present with proper types
func NormalizeJournalEntry(entry *JournalEntry) *JournalEntry {
	if entry == nil {
		entry = &JournalEntry{}
	}
	if entry.TS == "" {
		entry.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.Artifacts == nil {
		entry.Artifacts = []string{}
	}
	return entry
}

// JournalWriter appends normalized journal entries to an NDJSON file
type JournalWriter struct {
	path string
}

// NewJournalWriter creates a new JournalWriter instance
func NewJournalWriter(path string) *JournalWriter {
	return &JournalWriter{path: path}
}

// Append writes a normalized journal entry to the journal file
func (w *JournalWriter) Append(entry *JournalEntry) error {
	e := NormalizeJournalEntry(entry)

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if _, err = bw.Write(append(b, '\n')); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return err
	}

	// Sync to disk for durability; journal loss would hide transitions
	// from external observers but the append itself already succeeded.
	if err := f.Sync(); err != nil {
		GetLogger().Warn("failed to fsync journal: %v", err)
	}

	return nil
}
