package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/journal"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/notify"
	"git.home.luguber.info/inful/docpublish/internal/producer"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	"git.home.luguber.info/inful/docpublish/internal/retry"
	"git.home.luguber.info/inful/docpublish/internal/source"
	"git.home.luguber.info/inful/docpublish/internal/workspace"
)

// Stage names used for timing and logs.
const (
	StageResolve = "resolve"
	StageProduce = "produce"
	StageClone   = "clone"
	StagePublish = "publish"
)

// OutcomeSkipped marks runs gated off because the revision is not on the default branch.
const OutcomeSkipped = "skipped"

// ArtifactProducer emits the artifact for a run. *producer.Producer implements it.
type ArtifactProducer interface {
	Produce(ctx context.Context) (publish.Artifact, error)
}

// Report summarises a run.
type Report struct {
	RunID     string
	Revision  source.Revision
	Result    publish.Result
	Skipped   bool
	StartedAt time.Time
	Duration  time.Duration
}

// Outcome returns the run's outcome label.
func (r Report) Outcome() string {
	if r.Skipped {
		return OutcomeSkipped
	}
	return r.Result.Outcome.String()
}

// Success reports whether the run maps to a zero exit status.
func (r Report) Success() bool { return r.Skipped || r.Result.Outcome.Success() }

// Runner executes publish runs for one configuration. Runs on the same Runner
// must not overlap; watch mode serialises them.
type Runner struct {
	cfg       *config.Config
	producer  ArtifactProducer
	journal   journal.Store
	notifier  notify.Notifier
	recorder  metrics.Recorder
	gatherer  prom.Gatherer
	overrides source.Overrides
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithProducer replaces the configured command producer.
func WithProducer(p ArtifactProducer) Option { return func(r *Runner) { r.producer = p } }

// WithJournal sets the run journal.
func WithJournal(s journal.Store) Option { return func(r *Runner) { r.journal = s } }

// WithNotifier sets the outcome notifier.
func WithNotifier(n notify.Notifier) Option { return func(r *Runner) { r.notifier = n } }

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option { return func(r *Runner) { r.recorder = rec } }

// WithGatherer sets the registry flushed to the metrics textfile after each run.
func WithGatherer(g prom.Gatherer) Option { return func(r *Runner) { r.gatherer = g } }

// WithOverrides sets revision overrides (CI environment and flags).
func WithOverrides(o source.Overrides) Option { return func(r *Runner) { r.overrides = o } }

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// NewRunner creates a runner for cfg. Unset collaborators default to no-ops.
func NewRunner(cfg *config.Config, options ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		producer: producer.FromConfig(cfg.Artifact),
		journal:  journal.Nop{},
		notifier: notify.Nop{},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run executes one run. The returned error is set when the run could not reach
// the publish step (revision, producer, workspace or clone failures); a publish
// that ends Failed is reported through Report.Result with a nil error.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	rep := Report{RunID: r.newID(), StartedAt: time.Now()}
	logger := r.logger.With(logfields.RunID(rep.RunID))

	err := r.run(ctx, logger, &rep)
	rep.Duration = time.Since(rep.StartedAt)
	if err != nil {
		rep.Result = publish.Result{Outcome: publish.Failed, Err: err}
	}
	r.finish(ctx, logger, rep)
	return rep, err
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, rep *Report) error {
	var rev source.Revision
	err := r.stage(logger, StageResolve, func() error {
		var err error
		rev, err = source.Resolve(r.cfg.Source.Dir, r.cfg.Source.Name, r.overrides)
		return err
	})
	if err != nil {
		return err
	}
	rep.Revision = rev
	logger = logger.With(logfields.Revision(rev.Short()))

	var artifact publish.Artifact
	err = r.stage(logger, StageProduce, func() error {
		var err error
		artifact, err = r.producer.Produce(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if !rev.OnBranch(r.cfg.Source.DefaultBranch) {
		logger.Info("Revision is not on the default branch; skipping publish",
			slog.String("ref", rev.Ref),
			slog.String("event", rev.Event),
			slog.String("default_branch", r.cfg.Source.DefaultBranch))
		rep.Skipped = true
		return nil
	}

	ws := workspace.NewManager(r.cfg.Workspace.BaseDir, r.cfg.Workspace.Keep)
	if err := ws.Create(); err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			logger.Warn("Workspace cleanup failed", logfields.Error(err))
		}
	}()
	checkouts, err := ws.CreateSubdir("checkout")
	if err != nil {
		return err
	}

	var wc *git.WorkingCopy
	err = r.stage(logger, StageClone, func() error {
		var err error
		wc, err = git.NewClient(checkouts).Clone(ctx, git.RemoteFromConfig(r.cfg.Target))
		return err
	})
	if err != nil {
		return err
	}

	coord := publish.NewCoordinator(r.cfg.Publish.MaxAttempts, retry.FromConfig(r.cfg.Publish), r.recorder).WithLogger(logger)
	message := source.RenderMessage(r.cfg.Publish.MessageTemplate, rev, artifact.Path)
	_ = r.stage(logger, StagePublish, func() error {
		rep.Result = coord.Publish(ctx, artifact, wc, rev.Author, message)
		return rep.Result.Err
	})
	return nil
}

func (r *Runner) stage(logger *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.recorder.ObserveStageDuration(name, d)
	if err != nil {
		logger.Debug("Stage failed", logfields.Stage(name), logfields.DurationMS(float64(d.Milliseconds())), logfields.Error(err))
		return err
	}
	logger.Debug("Stage completed", logfields.Stage(name), logfields.DurationMS(float64(d.Milliseconds())))
	return nil
}

// finish records the run everywhere it is observed. None of it changes the outcome.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, rep Report) {
	outcome := rep.Outcome()
	r.recorder.IncOutcome(outcome)

	errText := ""
	if rep.Result.Err != nil {
		errText = rep.Result.Err.Error()
	}
	commit := ""
	if !rep.Result.Commit.IsZero() {
		commit = rep.Result.Commit.String()
	}

	rec := journal.Record{
		RunID:     rep.RunID,
		Revision:  rep.Revision.Hash,
		TargetURL: r.cfg.Target.URL,
		Branch:    r.cfg.Target.Branch,
		Path:      r.cfg.Artifact.Path,
		Outcome:   outcome,
		Attempts:  rep.Result.Attempts,
		Rebases:   rep.Result.Rebases,
		Commit:    commit,
		Error:     errText,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
	}
	// Recording must survive a canceled run context.
	recordCtx := context.WithoutCancel(ctx)
	if err := r.journal.Append(recordCtx, rec); err != nil {
		logger.Warn("Failed to append run to journal", logfields.Error(err))
	}

	ev := notify.Event{
		RunID:    rep.RunID,
		Outcome:  outcome,
		Revision: rep.Revision.Hash,
		Target:   r.cfg.Target.URL,
		Branch:   r.cfg.Target.Branch,
		Path:     r.cfg.Artifact.Path,
		Commit:   commit,
		Attempts: rep.Result.Attempts,
		Rebases:  rep.Result.Rebases,
		Error:    errText,
	}
	if err := r.notifier.Notify(recordCtx, ev); err != nil {
		logger.Warn("Failed to send run notification", logfields.Error(err))
	}

	if r.cfg.Metrics.Textfile != "" && r.gatherer != nil {
		if err := metrics.WriteTextfile(r.cfg.Metrics.Textfile, r.gatherer); err != nil {
			logger.Warn("Failed to write metrics textfile", logfields.Error(err))
		}
	}

	logger.Info("Run finished",
		logfields.Outcome(outcome),
		slog.Int("attempts", rep.Result.Attempts),
		slog.Int("rebases", rep.Result.Rebases),
		logfields.DurationMS(float64(rep.Duration.Milliseconds())))
}
