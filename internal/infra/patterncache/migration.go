package patterncache

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrator manages the pattern cache schema
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new database migrator
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Migrate applies the schema. Statements are idempotent so applying
// them on every open is safe.
func (m *Migrator) Migrate() error {
	if _, err := m.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply pattern cache schema failed: %w", err)
	}
	return nil
}
