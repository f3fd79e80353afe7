// Package store keeps the run history: one row per validation run,
// in a local SQLite database. History is bookkeeping for the CLI, not
// part of a run's correctness; a run that cannot be recorded still
// produced its report.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"paritycheck/internal/logging"
	"paritycheck/internal/report"
)

// Run is one recorded validation run.
type Run struct {
	ID         string
	BaselineID string
	ModuleID   string
	Status     string
	Pass       int
	Fail       int
	Errors     int
	Untested   int
	Duration   time.Duration
	StartedAt  time.Time
}

// RunStore persists runs in SQLite.
type RunStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open initializes the run database at the given path, creating the
// directory and schema as needed.
func Open(path string) (*RunStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &RunStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RunStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		baseline_id TEXT NOT NULL,
		module_id TEXT NOT NULL,
		status TEXT NOT NULL,
		pass_count INTEGER NOT NULL,
		fail_count INTEGER NOT NULL,
		error_count INTEGER NOT NULL,
		untested_count INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		started_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_module ON runs(module_id);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RecordRun stores one run. A missing ID gets a fresh UUID; the stored
// ID is returned either way.
func (s *RunStore) RecordRun(r Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, baseline_id, module_id, status, pass_count, fail_count, error_count, untested_count, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BaselineID, r.ModuleID, r.Status,
		r.Pass, r.Fail, r.Errors, r.Untested,
		r.Duration.Milliseconds(), r.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	logging.Store().Debug("run recorded",
		zap.String("id", r.ID), zap.String("module", r.ModuleID), zap.String("status", r.Status))
	return r.ID, nil
}

// RecordReport stores a run derived from a finished validation report.
func (s *RunStore) RecordReport(rep *report.ValidationReport, elapsed time.Duration) (string, error) {
	return s.RecordRun(Run{
		BaselineID: rep.BaselineID,
		ModuleID:   rep.ModuleID,
		Status:     string(rep.OverallStatus),
		Pass:       rep.Summary.Pass,
		Fail:       rep.Summary.Fail,
		Errors:     rep.Summary.Error,
		Untested:   rep.Summary.Untested,
		Duration:   elapsed,
	})
}

// RecentRuns returns up to limit runs, newest first.
func (s *RunStore) RecentRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, baseline_id, module_id, status, pass_count, fail_count, error_count, untested_count, duration_ms, started_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMs int64
		var started string
		if err := rows.Scan(&r.ID, &r.BaselineID, &r.ModuleID, &r.Status,
			&r.Pass, &r.Fail, &r.Errors, &r.Untested, &durationMs, &started); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}
