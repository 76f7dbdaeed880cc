// Package notify announces run outcomes on NATS. Notification is best effort:
// callers log failures and never let them change a run's outcome.
package notify

import (
	"context"
	"time"
)

// Event is the JSON document published for every run.
type Event struct {
	RunID     string    `json:"run_id"`
	Outcome   string    `json:"outcome"`
	Revision  string    `json:"revision"`
	Target    string    `json:"target"`
	Branch    string    `json:"branch"`
	Path      string    `json:"path"`
	Commit    string    `json:"commit,omitempty"`
	Attempts  int       `json:"attempts"`
	Rebases   int       `json:"rebases"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers run events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Nop is the Notifier used when notifications are not configured.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }
