package journal

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the journal at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, journalError("could not create journal directory", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, journalError("could not open journal database", err)
	}
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, journalError("failed to initialize journal schema", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		revision TEXT NOT NULL,
		target_url TEXT NOT NULL,
		branch TEXT NOT NULL,
		path TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		rebases INTEGER NOT NULL,
		commit_hash TEXT,
		error TEXT,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a record to the journal.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, revision, target_url, branch, path, outcome, attempts, rebases, commit_hash, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Revision, rec.TargetURL, rec.Branch, rec.Path, rec.Outcome,
		rec.Attempts, rec.Rebases, rec.Commit, rec.Error,
		rec.StartedAt.UnixMilli(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return journalError("failed to append run record", err)
	}
	return nil
}

const selectRuns = `SELECT run_id, revision, target_url, branch, path, outcome, attempts, rebases,
	COALESCE(commit_hash, ''), COALESCE(error, ''), started_at, duration_ms FROM runs`

// Recent returns up to limit records, newest first. A non-positive limit returns all.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, journalError("failed to query run records", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, journalError("failed to iterate run records", err)
	}
	return out, nil
}

// ByRun returns the record of runID.
func (s *SQLiteStore) ByRun(ctx context.Context, runID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE run_id = ?", runID)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRunNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var startedMS, durationMS int64
	err := row.Scan(&rec.RunID, &rec.Revision, &rec.TargetURL, &rec.Branch, &rec.Path, &rec.Outcome,
		&rec.Attempts, &rec.Rebases, &rec.Commit, &rec.Error, &startedMS, &durationMS)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, journalError("failed to scan run record", err)
	}
	rec.StartedAt = time.UnixMilli(startedMS)
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Open returns the SQLite journal at path, or Nop when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return Nop{}, nil
	}
	return NewSQLiteStore(path)
}
