package metrics

import "time"

// PushResultLabel enumerates push attempt results for counters.
type PushResultLabel string

const (
	PushOK       PushResultLabel = "ok"
	PushRejected PushResultLabel = "rejected"
	PushError    PushResultLabel = "error"
)

// RebaseResultLabel enumerates pull-rebase results for counters.
type RebaseResultLabel string

const (
	RebaseReplayed RebaseResultLabel = "replayed"
	RebaseDropped  RebaseResultLabel = "dropped"
	RebaseFailed   RebaseResultLabel = "failed"
)

// Recorder defines observability hooks for publish runs. Implementations
// may forward to Prometheus or elsewhere.
type Recorder interface {
	IncPushAttempt(result PushResultLabel)
	IncRebase(result RebaseResultLabel)
	IncRetriesExhausted()
	IncOutcome(outcome string) // outcome: published|nochange|failed|skipped
	ObservePublishDuration(d time.Duration)
	ObserveStageDuration(stage string, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncPushAttempt(PushResultLabel)             {}
func (NoopRecorder) IncRebase(RebaseResultLabel)                {}
func (NoopRecorder) IncRetriesExhausted()                       {}
func (NoopRecorder) IncOutcome(string)                          {}
func (NoopRecorder) ObservePublishDuration(time.Duration)       {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
