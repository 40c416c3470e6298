// Package store records merge runs in SQLite: one row per run, one per
// merged file and one per node operation applied to a file.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the run history.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  command         TEXT NOT NULL,
  merge_type      INTEGER NOT NULL,
  inputs          TEXT NOT NULL,
  output          TEXT NOT NULL,
  strategy        TEXT NOT NULL,
  policy_hash     TEXT,
  files           INTEGER DEFAULT 0,
  conflicts       INTEGER DEFAULT 0,
  status          TEXT NOT NULL DEFAULT 'running',
  error           TEXT
);

CREATE TABLE IF NOT EXISTS file_results (
  id                INTEGER PRIMARY KEY,
  run_id            INTEGER NOT NULL REFERENCES runs(id),
  path              TEXT NOT NULL,
  strategy          TEXT NOT NULL,
  language          TEXT,
  fallback          TEXT,
  conflicts         INTEGER NOT NULL,
  matcher_total     INTEGER DEFAULT 0,
  matcher_ordered   INTEGER DEFAULT 0,
  matcher_unordered INTEGER DEFAULT 0,
  added             INTEGER DEFAULT 0,
  deleted           INTEGER DEFAULT 0,
  merged            INTEGER DEFAULT 0,
  duration_ms       INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS operations (
  id              INTEGER PRIMARY KEY,
  file_result_id  INTEGER NOT NULL REFERENCES file_results(id),
  seq             INTEGER NOT NULL,
  name            TEXT NOT NULL,
  detail          TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_file_results_run ON file_results(run_id);
CREATE INDEX IF NOT EXISTS idx_operations_file_result ON operations(file_result_id);
`
