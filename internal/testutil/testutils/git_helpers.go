package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// SetupTestGitRepo initializes a temporary git repository for testing.
// Returns the repository, its worktree, and the absolute path to the temporary directory.
func SetupTestGitRepo(t *testing.T) (*git.Repository, *git.Worktree, string) {
	t.Helper()

	tempDir := t.TempDir()

	repo, err := git.PlainInit(tempDir, false)
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return repo, w, tempDir
}

// NewBareRemote creates an empty bare repository usable as a push target.
// HEAD points at branch so clones of the remote check it out.
func NewBareRemote(t *testing.T, branch string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "remote.git")
	repo, err := git.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("init bare: %v", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := repo.Storer.SetReference(head); err != nil {
		t.Fatalf("set bare HEAD: %v", err)
	}
	return dir
}

// Writer is an independent clone of a remote used to simulate concurrent publishers.
type Writer struct {
	t      *testing.T
	Repo   *git.Repository
	Dir    string
	Branch string
}

// NewWriter prepares a repository whose origin is remoteURL. The repository starts
// empty; call Sync to pick up the remote branch before committing.
func NewWriter(t *testing.T, remoteURL, branch string) *Writer {
	t.Helper()
	repo, _, dir := SetupTestGitRepo(t)
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remoteURL}}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := repo.Storer.SetReference(head); err != nil {
		t.Fatalf("set HEAD: %v", err)
	}
	return &Writer{t: t, Repo: repo, Dir: dir, Branch: branch}
}

// Sync fetches the remote branch and hard resets onto it. A missing remote branch is ignored.
func (w *Writer) Sync() {
	w.t.Helper()
	spec := gitconfig.RefSpec("+refs/heads/" + w.Branch + ":refs/remotes/origin/" + w.Branch)
	err := w.Repo.Fetch(&git.FetchOptions{RemoteName: "origin", RefSpecs: []gitconfig.RefSpec{spec}})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return
		}
		w.t.Fatalf("fetch: %v", err)
	}
	ref, err := w.Repo.Reference(plumbing.NewRemoteReferenceName("origin", w.Branch), true)
	if err != nil {
		return
	}
	branchRef := plumbing.NewHashReference(plumbing.NewBranchReferenceName(w.Branch), ref.Hash())
	if err := w.Repo.Storer.SetReference(branchRef); err != nil {
		w.t.Fatalf("set branch: %v", err)
	}
	wt, err := w.Repo.Worktree()
	if err != nil {
		w.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		w.t.Fatalf("reset: %v", err)
	}
}

// Commit writes content to path and commits it, returning the new commit hash.
func (w *Writer) Commit(path, content, msg string) plumbing.Hash {
	w.t.Helper()
	return CommitFile(w.t, w.Repo, w.Dir, path, content, msg)
}

// Push pushes the local branch to origin.
func (w *Writer) Push() {
	w.t.Helper()
	spec := gitconfig.RefSpec("refs/heads/" + w.Branch + ":refs/heads/" + w.Branch)
	if err := w.Repo.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []gitconfig.RefSpec{spec}}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		w.t.Fatalf("push: %v", err)
	}
}

// CommitFile writes content to filename inside repoPath and commits it.
func CommitFile(t *testing.T, repo *git.Repository, repoPath, filename, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	full := filepath.Join(repoPath, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := wt.Add(filename); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash
}

// RemoteTip returns the commit at the tip of branch in the bare repository at dir.
func RemoteTip(t *testing.T, dir, branch string) *object.Commit {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open remote: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		t.Fatalf("remote ref: %v", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatalf("remote commit: %v", err)
	}
	return commit
}

// RemoteFile returns the content of path at the tip of branch, or "" with ok=false when absent.
func RemoteFile(t *testing.T, dir, branch, path string) (string, bool) {
	t.Helper()
	file, err := RemoteTip(t, dir, branch).File(path)
	if err != nil {
		return "", false
	}
	content, err := file.Contents()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content, true
}

// RemoteHistoryLen counts commits reachable from the tip of branch.
func RemoteHistoryLen(t *testing.T, dir, branch string) int {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open remote: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return 0
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	n := 0
	_ = iter.ForEach(func(*object.Commit) error { n++; return nil })
	return n
}
