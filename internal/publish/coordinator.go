package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/retry"
)

// Coordinator runs the publish state machine against a working copy.
type Coordinator struct {
	maxAttempts int
	policy      retry.Policy
	recorder    metrics.Recorder
	logger      *slog.Logger
}

// NewCoordinator returns a coordinator allowing maxAttempts pushes (DefaultMaxAttempts when < 1).
func NewCoordinator(maxAttempts int, policy retry.Policy, recorder metrics.Recorder) *Coordinator {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Coordinator{maxAttempts: maxAttempts, policy: policy, recorder: recorder, logger: slog.Default()}
}

// WithLogger sets the logger used for attempt level events.
func (c *Coordinator) WithLogger(l *slog.Logger) *Coordinator {
	if l != nil {
		c.logger = l
	}
	return c
}

// MaxAttempts returns the push bound.
func (c *Coordinator) MaxAttempts() int { return c.maxAttempts }

// Publish writes artifact into wc, commits it as id with message and pushes,
// rebasing onto the remote tip after each rejected push. The working copy must
// be clean and on the target branch.
func (c *Coordinator) Publish(ctx context.Context, artifact Artifact, wc WorkingCopy, id Identity, message string) Result {
	start := time.Now()
	res := c.publish(ctx, artifact, wc, id, message)
	c.recorder.ObservePublishDuration(time.Since(start))

	attrs := []any{
		logfields.Outcome(res.Outcome.String()),
		logfields.Path(artifact.Path),
		slog.Int("attempts", res.Attempts),
		slog.Int("rebases", res.Rebases),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())),
	}
	switch res.Outcome {
	case Published:
		c.logger.Info("Artifact published", append(attrs, logfields.Commit(res.Commit.String()))...)
	case NoChange:
		c.logger.Info("Artifact unchanged; nothing to publish", attrs...)
	default:
		c.logger.Error("Publish failed", append(attrs, logfields.Error(res.Err))...)
	}
	return res
}

func (c *Coordinator) publish(ctx context.Context, artifact Artifact, wc WorkingCopy, id Identity, message string) Result {
	if err := wc.WriteFile(artifact.Path, artifact.Bytes); err != nil {
		return failed(Result{}, err, "failed to write artifact")
	}
	if err := wc.Stage(artifact.Path); err != nil {
		return failed(Result{}, err, "failed to stage artifact")
	}
	commit, err := wc.Commit(message, id)
	if err != nil {
		return failed(Result{}, err, "failed to commit artifact")
	}
	if commit.Status == git.CommitNoOp {
		return Result{Outcome: NoChange}
	}

	var res Result
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		push := wc.Push(ctx)
		c.logger.Debug("Push attempt", logfields.Attempt(attempt), slog.String("result", push.Status.String()))

		switch push.Status {
		case git.PushOK:
			c.recorder.IncPushAttempt(metrics.PushOK)
			head, err := wc.Head()
			if err != nil {
				c.logger.Warn("Pushed but could not read HEAD", logfields.Error(err))
			}
			res.Outcome, res.Commit = Published, head
			return res
		case git.PushRejected:
			c.recorder.IncPushAttempt(metrics.PushRejected)
		default:
			c.recorder.IncPushAttempt(metrics.PushError)
			return failed(res, push.Err, "push failed")
		}

		if attempt >= c.maxAttempts {
			c.recorder.IncRetriesExhausted()
			cause := fmt.Errorf("%w after %d push attempts: %w", ErrRetriesExhausted, attempt, push.Err)
			return failed(res, cause, "remote kept diverging")
		}

		c.logger.Info("Push rejected; rebasing onto remote", logfields.Attempt(attempt), slog.Int("remaining", c.maxAttempts-attempt))
		if err := c.policy.Wait(ctx, attempt); err != nil {
			return failed(res, err, "publish canceled")
		}
		rebase, err := wc.PullRebase(ctx)
		res.Rebases++
		if err != nil {
			c.recorder.IncRebase(metrics.RebaseFailed)
			return failed(res, err, "pull-rebase failed")
		}
		if !rebase.Pending() {
			// Upstream already carries our content.
			c.recorder.IncRebase(metrics.RebaseDropped)
			res.Outcome = NoChange
			return res
		}
		c.recorder.IncRebase(metrics.RebaseReplayed)
	}
}

func failed(res Result, cause error, message string) Result {
	res.Outcome = Failed
	res.Err = errors.PublishError(message).
		WithCause(cause).
		WithContext("attempts", res.Attempts).
		WithContext("rebases", res.Rebases).
		Fatal().
		Build()
	return res
}
