package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "git.home.luguber.info/inful/docpublish/internal/testutil/testutils"
)

func seededRemote(t *testing.T) (string, *helpers.Writer) {
	t.Helper()
	remote := helpers.NewBareRemote(t, "main")
	w := helpers.NewWriter(t, remote, "main")
	w.Commit("data/metrics.json", "v1", "seed")
	w.Push()
	return remote, w
}

func TestPullRebaseReplaysOntoUpstream(t *testing.T) {
	remote, other := seededRemote(t)
	wc := cloneTarget(t, remote, "docs")

	upstream := other.Commit("other.txt", "unrelated", "concurrent writer")
	other.Push()

	local := commitArtifact(t, wc, "data/metrics.json", "v2")
	require.Equal(t, PushRejected, wc.Push(context.Background()).Status)

	res, err := wc.PullRebase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, upstream, res.Upstream)
	assert.Equal(t, 1, res.Replayed)
	assert.Equal(t, 0, res.Dropped)
	assert.True(t, res.Pending())

	head, err := wc.Head()
	require.NoError(t, err)
	assert.NotEqual(t, local.Hash, head, "replayed commit gets a new hash")
	ok, err := isAncestor(wc.Repository(), upstream, head)
	require.NoError(t, err)
	assert.True(t, ok, "upstream commit stays an ancestor")

	replayed, err := wc.Repository().CommitObject(head)
	require.NoError(t, err)
	assert.Equal(t, tester.Name, replayed.Author.Name)
	assert.Equal(t, tester.Email, replayed.Author.Email)
	assert.Equal(t, "Update data/metrics.json", replayed.Message)

	require.Equal(t, PushOK, wc.Push(context.Background()).Status)
	content, _ := helpers.RemoteFile(t, remote, "main", "data/metrics.json")
	assert.Equal(t, "v2", content)
	content, _ = helpers.RemoteFile(t, remote, "main", "other.txt")
	assert.Equal(t, "unrelated", content)
}

func TestPullRebaseDropsCommitUpstreamAlreadyHas(t *testing.T) {
	remote, other := seededRemote(t)
	wc := cloneTarget(t, remote, "docs")

	other.Commit("data/metrics.json", "v2", "same content elsewhere")
	other.Push()

	commitArtifact(t, wc, "data/metrics.json", "v2")
	res, err := wc.PullRebase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Replayed)
	assert.Equal(t, 1, res.Dropped)
	assert.False(t, res.Pending())

	head, err := wc.Head()
	require.NoError(t, err)
	assert.Equal(t, res.Upstream, head)
}

func TestPullRebaseConflictRestoresHead(t *testing.T) {
	remote, other := seededRemote(t)
	wc := cloneTarget(t, remote, "docs")

	other.Commit("data/metrics.json", "v3", "different content")
	other.Push()

	local := commitArtifact(t, wc, "data/metrics.json", "v2")
	_, err := wc.PullRebase(context.Background())
	var conflict *RebaseConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "data/metrics.json", conflict.Path)

	head, err := wc.Head()
	require.NoError(t, err)
	assert.Equal(t, local.Hash, head)
}

func TestPullRebaseFastForwardsWhenBehind(t *testing.T) {
	remote, other := seededRemote(t)
	wc := cloneTarget(t, remote, "docs")

	upstream := other.Commit("other.txt", "x", "ahead")
	other.Push()

	res, err := wc.PullRebase(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Pending())
	head, err := wc.Head()
	require.NoError(t, err)
	assert.Equal(t, upstream, head)
}

func TestPullRebaseOntoBranchCreatedConcurrently(t *testing.T) {
	remote := helpers.NewBareRemote(t, "main")
	wc := cloneTarget(t, remote, "docs")

	other := helpers.NewWriter(t, remote, "main")
	other.Commit("other.txt", "first", "created the branch")
	other.Push()

	commitArtifact(t, wc, "data/metrics.json", "v1")
	require.Equal(t, PushRejected, wc.Push(context.Background()).Status)

	res, err := wc.PullRebase(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	require.Equal(t, PushOK, wc.Push(context.Background()).Status)
	assert.Equal(t, 2, helpers.RemoteHistoryLen(t, remote, "main"))
}

func TestPullRebaseWithoutUpstreamBranch(t *testing.T) {
	remote := helpers.NewBareRemote(t, "main")
	wc := cloneTarget(t, remote, "docs")
	commitArtifact(t, wc, "data/metrics.json", "v1")

	res, err := wc.PullRebase(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Pending())
	assert.True(t, res.Upstream.IsZero())
}
