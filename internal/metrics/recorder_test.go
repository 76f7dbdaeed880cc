package metrics

import (
	"testing"
	"time"
)

// NoopRecorder must satisfy Recorder without a receiver.
func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncPushAttempt(PushError)
	r.IncRebase(RebaseDropped)
	r.IncRetriesExhausted()
	r.IncOutcome("skipped")
	r.ObservePublishDuration(time.Millisecond)
	r.ObserveStageDuration("journal", time.Millisecond)
}
