// Package journal persists one record per run in a local SQLite database so
// `docpublish history` can show what recent runs did.
package journal

import (
	"context"
	"time"
)

// Record is the persisted summary of one run.
type Record struct {
	RunID     string
	Revision  string
	TargetURL string
	Branch    string
	Path      string
	Outcome   string // published|nochange|failed|skipped
	Attempts  int
	Rebases   int
	Commit    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Store defines the interface for persisting and retrieving run records.
type Store interface {
	// Append adds a record to the journal.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// ByRun returns the record of a run, or ErrRunNotFound.
	ByRun(ctx context.Context, runID string) (Record, error)

	// Close closes the store and releases resources.
	Close() error
}

// Nop is the Store used when no journal path is configured.
type Nop struct{}

func (Nop) Append(context.Context, Record) error          { return nil }
func (Nop) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (Nop) ByRun(context.Context, string) (Record, error) { return Record{}, ErrRunNotFound }
func (Nop) Close() error                                  { return nil }
