// Package watch re-runs the publish pipeline when producer inputs change or on
// a fixed interval. Runs never overlap: triggers that arrive while a run is in
// progress collapse into a single follow-up run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// RunFunc performs one run. Errors are logged; they do not stop watching.
type RunFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Paths      []string      // files or directories (watched recursively)
	Ignore     []string      // files whose changes never trigger a run, e.g. the producer output
	Interval   time.Duration // periodic run; zero disables
	Debounce   time.Duration // quiet period after the last change before running
	RunOnStart bool
	Logger     *slog.Logger
}

// Watcher triggers serialised runs.
type Watcher struct {
	opts    Options
	run     RunFunc
	trigger chan string
	files   map[string]bool
	roots   []string
	ignore  map[string]bool
	logger  *slog.Logger
}

// New creates a watcher calling run.
func New(run RunFunc, opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		opts:    opts,
		run:     run,
		trigger: make(chan string, 1),
		files:   map[string]bool{},
		ignore:  map[string]bool{},
		logger:  logger,
	}
	for _, p := range opts.Ignore {
		if abs, err := filepath.Abs(p); err == nil {
			w.ignore[abs] = true
		}
	}
	return w
}

// Run watches until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.opts.Paths) == 0 && w.opts.Interval <= 0 {
		return errors.New("watch needs input paths or an interval")
	}
	var fsw *fsnotify.Watcher
	if len(w.opts.Paths) > 0 {
		var err error
		fsw, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		defer func() { _ = fsw.Close() }()
		if err := w.addPaths(fsw); err != nil {
			return err
		}
	}
	var sched gocron.Scheduler
	if w.opts.Interval > 0 {
		var err error
		if sched, err = w.schedule(); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if fsw != nil {
		changes := make(chan string, 16)
		g.Go(func() error { return w.watchLoop(ctx, fsw, changes) })
		g.Go(func() error { return w.debounceLoop(ctx, changes) })
	}
	if sched != nil {
		sched.Start()
		g.Go(func() error {
			<-ctx.Done()
			return sched.Shutdown()
		})
	}
	g.Go(func() error { return w.runLoop(ctx) })

	if w.opts.RunOnStart {
		w.fire("start")
	}
	w.logger.Info("Watching for changes",
		slog.Any("paths", w.opts.Paths),
		slog.Duration("interval", w.opts.Interval),
		slog.Duration("debounce", w.opts.Debounce))

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) schedule() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(w.fire, "interval"),
		gocron.WithName("docpublish-interval"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create interval job: %w", err)
	}
	return s, nil
}

// fire requests a run; a request already pending absorbs it.
func (w *Watcher) fire(reason string) {
	select {
	case w.trigger <- reason:
	default:
	}
}

func (w *Watcher) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-w.trigger:
			w.logger.Info("Starting run", slog.String("trigger", reason))
			if err := w.run(ctx); err != nil {
				w.logger.Error("Run failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) addPaths(fsw *fsnotify.Watcher) error {
	for _, p := range w.opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve watch path %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		if !info.IsDir() {
			// Watch the parent; editors replace files rather than writing in place.
			w.files[abs] = true
			if err := fsw.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("failed to watch %s: %w", p, err)
			}
			continue
		}
		w.roots = append(w.roots, abs)
		if err := addTree(fsw, abs); err != nil {
			return err
		}
	}
	return nil
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether an event on name should trigger a run.
func (w *Watcher) relevant(name string) bool {
	if w.ignore[name] {
		return false
	}
	return w.files[name] || w.underRoot(name)
}

func (w *Watcher) underRoot(name string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, name)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			return false
		}
		return true
	}
	return false
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && w.underRoot(ev.Name) {
					if err := addTree(fsw, ev.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.logger.Debug("Input change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			select {
			case changes <- ev.Name:
			default:
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context, changes <-chan string) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			w.fire("change")
		}
	}
}
