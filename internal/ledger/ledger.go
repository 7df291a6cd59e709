// Package ledger records completed migrations in a local SQLite database so
// an issue is not migrated twice by accident.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Record is one completed migration.
type Record struct {
	IssueID    int       `db:"issue_id"`
	TaskID     string    `db:"task_id"`
	TaskURL    string    `db:"task_url"`
	ListID     string    `db:"list_id"`
	Subject    string    `db:"subject"`
	MigratedAt time.Time `db:"migrated_at"`
}

// Ledger is the SQLite-backed migration history.
type Ledger struct {
	db *sqlx.DB
}

// Open opens (or creates) the ledger at path and applies pending migrations.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a completed migration, replacing any earlier one for the
// same issue.
func (l *Ledger) Record(ctx context.Context, r Record) error {
	if r.MigratedAt.IsZero() {
		r.MigratedAt = time.Now().UTC()
	}
	_, err := l.db.NamedExecContext(ctx, `
INSERT INTO migrations (issue_id, task_id, task_url, list_id, subject, migrated_at)
VALUES (:issue_id, :task_id, :task_url, :list_id, :subject, :migrated_at)
ON CONFLICT(issue_id) DO UPDATE SET
	task_id = excluded.task_id,
	task_url = excluded.task_url,
	list_id = excluded.list_id,
	subject = excluded.subject,
	migrated_at = excluded.migrated_at`, r)
	if err != nil {
		return fmt.Errorf("recording migration of issue %d: %w", r.IssueID, err)
	}
	return nil
}

// Lookup returns the migration of an issue, or nil if there is none.
func (l *Ledger) Lookup(ctx context.Context, issueID int) (*Record, error) {
	var r Record
	err := l.db.GetContext(ctx, &r, `SELECT * FROM migrations WHERE issue_id = ?`, issueID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up issue %d: %w", issueID, err)
	}
	return &r, nil
}

// List returns the most recent migrations, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []Record
	err := l.db.SelectContext(ctx, &records,
		`SELECT * FROM migrations ORDER BY migrated_at DESC, issue_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	return records, nil
}

func (l *Ledger) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := l.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := l.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := l.db.Beginx()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
	}
	return nil
}

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS migrations (
	issue_id    INTEGER PRIMARY KEY,
	task_id     TEXT NOT NULL,
	task_url    TEXT NOT NULL DEFAULT '',
	list_id     TEXT NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	migrated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_migrations_migrated_at ON migrations(migrated_at);`,
	},
}
