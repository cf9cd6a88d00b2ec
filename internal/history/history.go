// Package history keeps a per-machine record of past scan runs in a small
// SQLite database, so repeated scans of the same scope can be listed and
// their output directories found again.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded scan.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	OutputDir  string
	Targets    int
	Success    int
	Failed     int
	DiffedWith string // previous run directory, empty when no diff ran

	// Severity tallies, all zero when no diff ran.
	Critical int
	High     int
	Medium   int
	Low      int
	New      int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open connects to the database file, creating it and the schema on first
// use.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	targets     INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	diffed_with TEXT NOT NULL DEFAULT '',
	critical    INTEGER NOT NULL DEFAULT 0,
	high        INTEGER NOT NULL DEFAULT 0,
	medium      INTEGER NOT NULL DEFAULT 0,
	low         INTEGER NOT NULL DEFAULT 0,
	new_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordRun appends one run to the history.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	query := `
INSERT INTO runs (started_at, finished_at, output_dir, targets, success, failed,
	diffed_with, critical, high, medium, low, new_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.OutputDir, run.Targets, run.Success, run.Failed, run.DiffedWith,
		run.Critical, run.High, run.Medium, run.Low, run.New)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
SELECT id, started_at, finished_at, output_dir, targets, success, failed,
	diffed_with, critical, high, medium, low, new_count
FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.OutputDir, &r.Targets, &r.Success,
			&r.Failed, &r.DiffedWith, &r.Critical, &r.High, &r.Medium, &r.Low, &r.New); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
