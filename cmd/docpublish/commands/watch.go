package commands

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/source"
	"git.home.luguber.info/inful/docpublish/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Interval  string `help:"Override watch.interval (e.g. 10m)"`
	Debounce  string `help:"Override watch.debounce"`
	NoInitial bool   `name:"no-initial" help:"Do not run once at startup"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	opts, err := w.options(cfg)
	if err != nil {
		return err
	}
	opts.Logger = logger

	runner, closeRunner, err := newRunner(cfg, logger, source.OverridesFromEnv())
	if err != nil {
		return err
	}
	defer closeRunner()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watcher := watch.New(func(ctx context.Context) error {
		rep, err := runner.Run(ctx)
		printReport(g, rep)
		return runError(rep, err)
	}, opts)
	if err := watcher.Run(ctx); err != nil {
		return errors.NewError(errors.CategoryRuntime, "watch stopped").WithCause(err).Build()
	}
	logger.Info("Watch stopped")
	return nil
}

func (w *WatchCmd) options(cfg *config.Config) (watch.Options, error) {
	interval, err := duration("interval", w.Interval, cfg.Watch.Interval)
	if err != nil {
		return watch.Options{}, err
	}
	debounce, err := duration("debounce", w.Debounce, cfg.Watch.Debounce)
	if err != nil {
		return watch.Options{}, err
	}
	if len(cfg.Artifact.Inputs) == 0 && interval <= 0 {
		return watch.Options{}, errors.ValidationError("watch needs artifact.inputs or an interval").
			WithContext("field", "artifact.inputs").
			Build()
	}

	// Inputs and output are relative to the producer directory, like the output itself.
	resolve := func(p string) string {
		if filepath.IsAbs(p) || cfg.Artifact.Dir == "" {
			return p
		}
		return filepath.Join(cfg.Artifact.Dir, p)
	}
	paths := make([]string, 0, len(cfg.Artifact.Inputs))
	for _, in := range cfg.Artifact.Inputs {
		paths = append(paths, resolve(in))
	}
	return watch.Options{
		Paths:      paths,
		Ignore:     []string{resolve(cfg.Artifact.Output)},
		Interval:   interval,
		Debounce:   debounce,
		RunOnStart: !w.NoInitial,
	}, nil
}

func duration(field, flag, configured string) (time.Duration, error) {
	raw := configured
	if flag != "" {
		raw = flag
	}
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, errors.ValidationError("--"+field+" must be a non-negative duration").
			WithContext("value", raw).
			Build()
	}
	return d, nil
}
