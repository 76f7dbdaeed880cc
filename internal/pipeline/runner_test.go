package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/journal"
	"git.home.luguber.info/inful/docpublish/internal/metrics"
	"git.home.luguber.info/inful/docpublish/internal/notify"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	"git.home.luguber.info/inful/docpublish/internal/source"
	helpers "git.home.luguber.info/inful/docpublish/internal/testutil/testutils"
)

type fixture struct {
	cfg     *config.Config
	remote  string
	project string
	output  string
	head    plumbing.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	remote := helpers.NewBareRemote(t, "main")

	project := helpers.NewWriter(t, helpers.NewBareRemote(t, "main"), "main")
	head := project.Commit("main.go", "package main\n", "feat: initial")

	output := filepath.Join(t.TempDir(), "metrics.json")
	cfg := &config.Config{
		Target:    config.TargetConfig{URL: remote, Name: "docs"},
		Artifact:  config.ArtifactConfig{Path: "data/metrics.json", Output: output},
		Source:    config.SourceConfig{Dir: project.Dir, Name: "app"},
		Workspace: config.WorkspaceConfig{BaseDir: t.TempDir()},
	}
	config.ApplyDefaults(cfg)
	require.NoError(t, config.Validate(cfg))
	return &fixture{cfg: cfg, remote: remote, project: project.Dir, output: output, head: head}
}

func (f *fixture) writeOutput(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.output, []byte(content), 0o600))
}

type recordingNotifier struct {
	notify.Nop
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func TestRunPublishesThenNoChange(t *testing.T) {
	f := newFixture(t)
	store, err := journal.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	notifier := &recordingNotifier{}

	runner := NewRunner(f.cfg, WithJournal(store), WithNotifier(notifier),
		WithOverrides(source.Overrides{Ref: "refs/heads/main"}))

	f.writeOutput(t, "v1")
	rep, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, publish.Published, rep.Result.Outcome, "err=%v", rep.Result.Err)
	assert.Equal(t, f.head.String(), rep.Revision.Hash)
	assert.NotEmpty(t, rep.RunID)

	tip := helpers.RemoteTip(t, f.remote, "main")
	assert.Equal(t, "tester", tip.Author.Name)
	assert.Equal(t, "t@example.com", tip.Author.Email)
	assert.Equal(t, "Update data/metrics.json from app@"+f.head.String(), tip.Message)
	content, _ := helpers.RemoteFile(t, f.remote, "main", "data/metrics.json")
	assert.Equal(t, "v1", content)

	rep2, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, publish.NoChange, rep2.Result.Outcome)
	assert.Equal(t, tip.Hash, helpers.RemoteTip(t, f.remote, "main").Hash)

	recs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "nochange", recs[0].Outcome)
	assert.Equal(t, "published", recs[1].Outcome)
	assert.Equal(t, tip.Hash.String(), recs[1].Commit)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, rep.RunID, notifier.events[0].RunID)
	assert.Equal(t, "published", notifier.events[0].Outcome)
}

func TestRunSkipsOffDefaultBranch(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, "v1")
	runner := NewRunner(f.cfg, WithOverrides(source.Overrides{Ref: "refs/pull/3/merge", EventName: "pull_request"}))

	rep, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
	assert.True(t, rep.Success())
	assert.Equal(t, OutcomeSkipped, rep.Outcome())
	assert.Zero(t, helpers.RemoteHistoryLen(t, f.remote, "main"))
}

func TestRunProducerFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	store, err := journal.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runner := NewRunner(f.cfg, WithJournal(store), WithOverrides(source.Overrides{Ref: "refs/heads/main"}))
	runner.newID = func() string { return "fixed-run" }

	rep, err := runner.Run(context.Background())
	require.Error(t, err, "output file was never written")
	assert.Equal(t, publish.Failed, rep.Result.Outcome)
	assert.False(t, rep.Success())

	rec, err := store.ByRun(context.Background(), "fixed-run")
	require.NoError(t, err)
	assert.Equal(t, "failed", rec.Outcome)
	assert.NotEmpty(t, rec.Error)
}

func TestRunNotifierFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, "v1")
	notifier := &recordingNotifier{err: errors.New("nats down")}

	rep, err := NewRunner(f.cfg, WithNotifier(notifier), WithOverrides(source.Overrides{Ref: "refs/heads/main"})).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, publish.Published, rep.Result.Outcome)
	assert.Len(t, notifier.events, 1)
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, "v1")
	f.cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "docpublish.prom")
	reg := prom.NewRegistry()

	_, err := NewRunner(f.cfg,
		WithRecorder(metrics.NewPrometheusRecorder(reg)),
		WithGatherer(reg),
		WithOverrides(source.Overrides{Ref: "refs/heads/main"}),
	).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(f.cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `docpublish_run_outcomes_total{outcome="published"} 1`)
	assert.Contains(t, string(data), `docpublish_push_attempts_total{result="ok"} 1`)
}

func TestRunCloneFailure(t *testing.T) {
	f := newFixture(t)
	f.writeOutput(t, "v1")
	f.cfg.Target.URL = filepath.Join(t.TempDir(), "does-not-exist.git")

	rep, err := NewRunner(f.cfg, WithOverrides(source.Overrides{Ref: "refs/heads/main"})).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, publish.Failed, rep.Result.Outcome)
}
