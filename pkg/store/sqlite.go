package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode so a build and a pre-commit hook can overlap.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
// Timestamps are stored as fixed-width UTC text.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS pending_reviews (
		position INTEGER NOT NULL,
		file TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		triggered_at TEXT NOT NULL,
		reason TEXT NOT NULL,
		PRIMARY KEY (file, triggered_by)
	);

	-- Single row holding the store-level timestamp
	CREATE TABLE IF NOT EXISTS pending_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS builds (
		build_id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		root TEXT NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		stale INTEGER NOT NULL,
		artifacts INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_builds_generated_at ON builds(generated_at);

	CREATE TABLE IF NOT EXISTS leases (
		name TEXT PRIMARY KEY,
		holder_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		version INTEGER NOT NULL
	);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// timeLayout has a fixed width so stored timestamps compare as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}
