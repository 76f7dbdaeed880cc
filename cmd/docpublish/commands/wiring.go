package commands

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/journal"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/notify"
	"git.home.luguber.info/inful/docpublish/internal/pipeline"
	"git.home.luguber.info/inful/docpublish/internal/source"
)

// newRunner wires the pipeline with the journal, notifier and metrics the
// configuration enables. The returned closer releases them.
func newRunner(cfg *config.Config, logger *slog.Logger, overrides source.Overrides) (*pipeline.Runner, func(), error) {
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		// Notification is best effort; an unreachable server must not block publishing.
		logger.Warn("Notifier unavailable; run events will not be sent",
			logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		notifier = notify.Nop{}
	}

	opts := []pipeline.Option{
		pipeline.WithJournal(store),
		pipeline.WithNotifier(notifier),
		pipeline.WithOverrides(overrides),
		pipeline.WithLogger(logger),
	}
	if cfg.Metrics.Textfile != "" {
		reg := prom.NewRegistry()
		opts = append(opts, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)), pipeline.WithGatherer(reg))
	}

	closer := func() {
		if err := notifier.Close(); err != nil {
			logger.Warn("Failed to close notifier", logfields.Error(err))
		}
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close journal", logfields.Error(err))
		}
	}
	return pipeline.NewRunner(cfg, opts...), closer, nil
}

// runError turns a finished run into the command's error. Anything that ends
// the run as failed exits 1, whether or not the coordinator got to push.
func runError(rep pipeline.Report, err error) error {
	if err != nil {
		if classified, ok := errors.AsClassified(err); ok && classified.IsCategory(errors.CategoryPublish) {
			return err
		}
		return errors.PublishError("run failed before publishing").
			WithCause(err).
			WithContext("run_id", rep.RunID).
			Fatal().
			Build()
	}
	if !rep.Success() {
		return rep.Result.Err
	}
	return nil
}
