package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// PullRebase fetches the target branch and replays local commits that upstream
// lacks on top of its tip. Author and message are kept; committer time is
// refreshed. Commits whose changes upstream already carries are dropped. On a
// conflict the working copy is reset to where it started and a
// *RebaseConflictError is returned.
func (w *WorkingCopy) PullRebase(ctx context.Context) (RebaseResult, error) {
	upstream, found, err := w.fetchUpstream(ctx)
	if err != nil {
		return RebaseResult{}, err
	}
	head, err := w.Head()
	if err != nil {
		return RebaseResult{}, err
	}
	if !found {
		// Nothing upstream to rebase onto; local history stays pending.
		pending := 0
		if !head.IsZero() {
			pending = 1
		}
		return RebaseResult{Replayed: pending}, nil
	}
	if head.IsZero() || head == upstream {
		return RebaseResult{Upstream: upstream}, w.resetTo(upstream)
	}

	behind, err := isAncestor(w.repo, head, upstream)
	if err != nil {
		return RebaseResult{}, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	if behind {
		return RebaseResult{Upstream: upstream}, w.resetTo(upstream)
	}

	local, err := w.localCommits(head, upstream)
	if err != nil {
		return RebaseResult{}, err
	}

	if err := w.resetTo(upstream); err != nil {
		return RebaseResult{}, err
	}
	res := RebaseResult{Upstream: upstream}
	for _, c := range local {
		replayed, err := w.replay(c)
		if err != nil {
			if resetErr := w.resetTo(head); resetErr != nil {
				slog.Error("Failed to restore working copy after aborted rebase", logfields.Error(resetErr), logfields.Commit(head.String()))
			}
			return RebaseResult{}, err
		}
		if replayed {
			res.Replayed++
		} else {
			res.Dropped++
		}
	}
	slog.Debug("Rebased onto upstream",
		logfields.Commit(upstream.String()),
		slog.Int("replayed", res.Replayed),
		slog.Int("dropped", res.Dropped))
	return res, nil
}

// fetchUpstream updates the remote tracking ref of the target branch and returns its tip.
// found is false when the remote does not have the branch.
func (w *WorkingCopy) fetchUpstream(ctx context.Context) (plumbing.Hash, bool, error) {
	branch := w.remote.Branch
	spec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remoteName, branch))
	err := w.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       w.auth,
		Tags:       git.NoTags,
	})
	switch {
	case err == nil || errors.Is(err, git.NoErrAlreadyUpToDate):
	case isMissingBranch(err):
		return plumbing.ZeroHash, false, nil
	default:
		return plumbing.ZeroHash, false, ClassifyGitError(classifyTransportError("fetch", w.remote.URL, branch, err), "fetch", w.remote.URL)
	}
	ref, err := w.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, false, nil
	}
	if err != nil {
		return plumbing.ZeroHash, false, ClassifyGitError(err, "fetch", w.remote.URL)
	}
	return ref.Hash(), true, nil
}

// localCommits lists commits reachable from head but not from upstream, oldest first.
// Only linear local history is supported.
func (w *WorkingCopy) localCommits(head, upstream plumbing.Hash) ([]*object.Commit, error) {
	known, err := reachable(w.repo, upstream)
	if err != nil {
		return nil, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	var out []*object.Commit
	next := head
	for {
		if _, ok := known[next]; ok {
			break
		}
		c, err := w.repo.CommitObject(next)
		if err != nil {
			return nil, ClassifyGitError(err, "rebase", w.remote.URL)
		}
		if c.NumParents() > 1 {
			return nil, &MergeCommitError{Commit: c.Hash.String()}
		}
		out = append(out, c)
		if c.NumParents() == 0 {
			break
		}
		next = c.ParentHashes[0]
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type fileChange struct {
	path string
	base *object.TreeEntry // nil when the commit added the path
	ours *object.TreeEntry // nil when the commit removed the path
}

// replay applies the changes c introduced relative to its parent onto the current
// HEAD and commits them. It returns false when nothing was left to commit.
func (w *WorkingCopy) replay(c *object.Commit) (bool, error) {
	changes, err := commitChanges(c)
	if err != nil {
		return false, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	headRef, err := w.repo.Head()
	if err != nil {
		return false, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	headCommit, err := w.repo.CommitObject(headRef.Hash())
	if err != nil {
		return false, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	current, err := headCommit.Tree()
	if err != nil {
		return false, ClassifyGitError(err, "rebase", w.remote.URL)
	}

	for _, ch := range changes {
		theirs, err := lookupEntry(current, ch.path)
		if err != nil {
			return false, ClassifyGitError(err, "rebase", w.remote.URL)
		}
		switch {
		case sameEntry(theirs, ch.ours):
			continue
		case !sameEntry(theirs, ch.base):
			return false, &RebaseConflictError{Path: ch.path, Commit: c.Hash.String(), Upstream: headRef.Hash().String()}
		}
		if err := w.apply(c, ch); err != nil {
			return false, err
		}
	}

	dirty, err := w.hasStagedChanges()
	if err != nil || !dirty {
		return false, err
	}
	committer := c.Committer
	committer.When = w.now()
	author := c.Author
	if _, err := w.wt.Commit(c.Message, &git.CommitOptions{Author: &author, Committer: &committer}); err != nil {
		return false, ClassifyGitError(err, "rebase", w.remote.URL)
	}
	return true, nil
}

func (w *WorkingCopy) apply(c *object.Commit, ch fileChange) error {
	if ch.ours == nil {
		if _, err := w.wt.Remove(ch.path); err != nil {
			return ClassifyGitError(err, "rebase", w.remote.URL)
		}
		return nil
	}
	file, err := c.File(ch.path)
	if err != nil {
		return ClassifyGitError(err, "rebase", w.remote.URL)
	}
	content, err := file.Contents()
	if err != nil {
		return ClassifyGitError(err, "rebase", w.remote.URL)
	}
	mode, err := file.Mode.ToOSFileMode()
	if err != nil {
		mode = 0o644
	}
	full := filepath.Join(w.dir, filepath.FromSlash(ch.path))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", ch.path, err)
	}
	if err := os.WriteFile(full, []byte(content), mode.Perm()); err != nil {
		return fmt.Errorf("write %s: %w", ch.path, err)
	}
	if _, err := w.wt.Add(ch.path); err != nil {
		return ClassifyGitError(err, "rebase", w.remote.URL)
	}
	return nil
}

func (w *WorkingCopy) resetTo(hash plumbing.Hash) error {
	if err := w.wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return ClassifyGitError(err, "reset", w.remote.URL)
	}
	return nil
}

// commitChanges lists the blob level changes of c against its first parent.
func commitChanges(c *object.Commit) ([]fileChange, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	if c.NumParents() == 0 {
		var out []fileChange
		err := tree.Files().ForEach(func(f *object.File) error {
			out = append(out, fileChange{path: f.Name, ours: &object.TreeEntry{Name: f.Name, Mode: f.Mode, Hash: f.Hash}})
			return nil
		})
		return out, err
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	diff, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	out := make([]fileChange, 0, len(diff))
	for _, d := range diff {
		action, err := d.Action()
		if err != nil {
			return nil, err
		}
		switch action {
		case merkletrie.Insert:
			out = append(out, fileChange{path: d.To.Name, ours: entryOf(d.To)})
		case merkletrie.Delete:
			out = append(out, fileChange{path: d.From.Name, base: entryOf(d.From)})
		case merkletrie.Modify:
			out = append(out, fileChange{path: d.To.Name, base: entryOf(d.From), ours: entryOf(d.To)})
		}
	}
	return out, nil
}

func entryOf(e object.ChangeEntry) *object.TreeEntry {
	entry := e.TreeEntry
	return &entry
}

func lookupEntry(tree *object.Tree, name string) (*object.TreeEntry, error) {
	entry, err := tree.FindEntry(name)
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if entry.Mode == filemode.Dir {
		return nil, nil
	}
	return entry, nil
}

func sameEntry(a, b *object.TreeEntry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Hash == b.Hash
}
