package publish_test

import (
	"context"
	"fmt"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/git"
	"git.home.luguber.info/inful/docpublish/internal/publish"
	"git.home.luguber.info/inful/docpublish/internal/retry"
	helpers "git.home.luguber.info/inful/docpublish/internal/testutil/testutils"
)

var author = publish.Identity{Name: "Grace Hopper", Email: "grace@example.com"}

func clone(t *testing.T, remote string) *git.WorkingCopy {
	t.Helper()
	wc, err := git.NewClient(t.TempDir()).Clone(context.Background(), git.Remote{URL: remote, Branch: "main", Name: "docs"})
	require.NoError(t, err)
	return wc
}

func publishContent(t *testing.T, wc publish.WorkingCopy, content string) publish.Result {
	t.Helper()
	coord := publish.NewCoordinator(publish.DefaultMaxAttempts, retry.Immediate(), nil)
	return coord.Publish(context.Background(), publish.Artifact{Path: "data/metrics.json", Bytes: []byte(content)}, wc, author, "Update data/metrics.json from app@"+content)
}

// racingWorkingCopy lets another writer land a commit right before each of the first n pushes.
type racingWorkingCopy struct {
	*git.WorkingCopy
	writer *helpers.Writer
	n      int
	landed []plumbing.Hash
}

func (r *racingWorkingCopy) Push(ctx context.Context) git.PushResult {
	if len(r.landed) < r.n {
		r.writer.Sync()
		file := fmt.Sprintf("other-%d.txt", len(r.landed))
		r.landed = append(r.landed, r.writer.Commit(file, "concurrent", "concurrent "+file))
		r.writer.Push()
	}
	return r.WorkingCopy.Push(ctx)
}

func TestPublishScenario(t *testing.T) {
	remote := helpers.NewBareRemote(t, "main")

	// Run 1: empty remote.
	res := publishContent(t, clone(t, remote), "v1")
	require.Equal(t, publish.Published, res.Outcome, "err=%v", res.Err)
	assert.Equal(t, 1, res.Attempts)
	content, ok := helpers.RemoteFile(t, remote, "main", "data/metrics.json")
	require.True(t, ok)
	assert.Equal(t, "v1", content)
	tip := helpers.RemoteTip(t, remote, "main")
	assert.Equal(t, res.Commit, tip.Hash)

	// Run 2: identical content.
	res = publishContent(t, clone(t, remote), "v1")
	assert.Equal(t, publish.NoChange, res.Outcome)
	assert.Zero(t, res.Attempts)
	assert.Equal(t, tip.Hash, helpers.RemoteTip(t, remote, "main").Hash, "remote HEAD unchanged")

	// Run 3: a concurrent writer pushes an unrelated file after our clone.
	wc := clone(t, remote)
	other := helpers.NewWriter(t, remote, "main")
	other.Sync()
	other.Commit("README.md", "unrelated", "concurrent writer")
	other.Push()

	res = publishContent(t, wc, "v2")
	require.Equal(t, publish.Published, res.Outcome, "err=%v", res.Err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, res.Rebases)
	content, _ = helpers.RemoteFile(t, remote, "main", "data/metrics.json")
	assert.Equal(t, "v2", content)
	readme, ok := helpers.RemoteFile(t, remote, "main", "README.md")
	require.True(t, ok)
	assert.Equal(t, "unrelated", readme)
	assert.Equal(t, 3, helpers.RemoteHistoryLen(t, remote, "main"))
}

func TestPublishKeepsConcurrentCommits(t *testing.T) {
	remote := helpers.NewBareRemote(t, "main")
	seed := helpers.NewWriter(t, remote, "main")
	seed.Commit("data/metrics.json", "v0", "seed")
	seed.Push()

	racing := &racingWorkingCopy{WorkingCopy: clone(t, remote), writer: helpers.NewWriter(t, remote, "main"), n: 3}
	res := publishContent(t, racing, "v1")

	require.Equal(t, publish.Published, res.Outcome, "err=%v", res.Err)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, res.Rebases)

	tip := helpers.RemoteTip(t, remote, "main")
	assert.Equal(t, res.Commit, tip.Hash)
	ancestors := map[plumbing.Hash]bool{}
	iter, err := racing.Repository().Log(&gogit.LogOptions{From: tip.Hash})
	require.NoError(t, err)
	require.NoError(t, iter.ForEach(func(c *object.Commit) error { ancestors[c.Hash] = true; return nil }))
	for _, h := range racing.landed {
		assert.True(t, ancestors[h], "concurrent commit %s must survive", h)
	}
	assert.Equal(t, author.Name, tip.Author.Name)
	assert.Equal(t, author.Email, tip.Author.Email)
}

func TestPublishIdempotent(t *testing.T) {
	remote := helpers.NewBareRemote(t, "main")
	wc := clone(t, remote)

	first := publishContent(t, wc, "same")
	second := publishContent(t, wc, "same")

	assert.Equal(t, publish.Published, first.Outcome)
	assert.Equal(t, publish.NoChange, second.Outcome)
	assert.Equal(t, 1, helpers.RemoteHistoryLen(t, remote, "main"))
}
