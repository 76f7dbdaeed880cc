package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

// Identity is the author attributed to a commit.
type Identity struct {
	Name  string
	Email string
}

// CommitStatus tells whether Commit recorded anything.
type CommitStatus int

const (
	CommitCreated CommitStatus = iota + 1
	CommitNoOp
)

func (s CommitStatus) String() string {
	switch s {
	case CommitCreated:
		return "created"
	case CommitNoOp:
		return "noop"
	default:
		return "unknown"
	}
}

// CommitResult is the outcome of Commit. Hash is zero for CommitNoOp.
type CommitResult struct {
	Status CommitStatus
	Hash   plumbing.Hash
}

// PushStatus classifies a push attempt.
type PushStatus int

const (
	PushOK PushStatus = iota + 1
	PushRejected
	PushError
)

func (s PushStatus) String() string {
	switch s {
	case PushOK:
		return "ok"
	case PushRejected:
		return "rejected"
	case PushError:
		return "error"
	default:
		return "unknown"
	}
}

// PushResult is the outcome of Push. Err is set for PushRejected and PushError.
type PushResult struct {
	Status PushStatus
	Err    error
}

// RebaseResult summarises a PullRebase.
type RebaseResult struct {
	Upstream plumbing.Hash
	Replayed int // local commits re-applied on top of Upstream
	Dropped  int // local commits whose changes upstream already carries
}

// Pending reports whether local commits remain to be pushed.
func (r RebaseResult) Pending() bool { return r.Replayed > 0 }

// WorkingCopy is a checkout of the target branch with push credentials attached.
type WorkingCopy struct {
	repo   *git.Repository
	wt     *git.Worktree
	dir    string
	remote Remote
	auth   transport.AuthMethod
	now    func() time.Time
}

func newWorkingCopy(repo *git.Repository, dir string, remote Remote, method transport.AuthMethod) (*WorkingCopy, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, ClassifyGitError(err, "worktree", remote.URL)
	}
	return &WorkingCopy{repo: repo, wt: wt, dir: dir, remote: remote, auth: method, now: time.Now}, nil
}

// Dir returns the checkout directory.
func (w *WorkingCopy) Dir() string { return w.dir }

// Branch returns the target branch name.
func (w *WorkingCopy) Branch() string { return w.remote.Branch }

// Repository exposes the underlying go-git repository.
func (w *WorkingCopy) Repository() *git.Repository { return w.repo }

// Head returns the current HEAD commit, or the zero hash on an unborn branch.
func (w *WorkingCopy) Head() (plumbing.Hash, error) {
	ref, err := w.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, ClassifyGitError(err, "head", w.remote.URL)
	}
	return ref.Hash(), nil
}

// WriteFile overwrites rel with data, creating parent directories as needed.
func (w *WorkingCopy) WriteFile(rel string, data []byte) error {
	full, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("create parent directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil { //nolint:gosec // published files are world readable
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Stage adds rel to the index.
func (w *WorkingCopy) Stage(rel string) error {
	if _, err := w.resolve(rel); err != nil {
		return err
	}
	if _, err := w.wt.Add(path.Clean(rel)); err != nil {
		return ClassifyGitError(err, "add", w.remote.URL)
	}
	return nil
}

// Commit records the index under id. Nothing staged relative to HEAD yields CommitNoOp.
func (w *WorkingCopy) Commit(message string, id Identity) (CommitResult, error) {
	dirty, err := w.hasStagedChanges()
	if err != nil {
		return CommitResult{}, err
	}
	if !dirty {
		return CommitResult{Status: CommitNoOp}, nil
	}
	sig := &object.Signature{Name: id.Name, Email: id.Email, When: w.now()}
	hash, err := w.wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if errors.Is(err, git.ErrEmptyCommit) {
		return CommitResult{Status: CommitNoOp}, nil
	}
	if err != nil {
		return CommitResult{}, ClassifyGitError(err, "commit", w.remote.URL)
	}
	slog.Debug("Created commit", logfields.Commit(hash.String()), logfields.Branch(w.remote.Branch))
	return CommitResult{Status: CommitCreated, Hash: hash}, nil
}

// Push sends the local branch to the remote branch of the same name. It never forces.
func (w *WorkingCopy) Push(ctx context.Context) PushResult {
	ref := plumbing.NewBranchReferenceName(w.remote.Branch)
	spec := gitconfig.RefSpec(ref.String() + ":" + ref.String())
	err := w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       w.auth,
	})
	switch {
	case err == nil || errors.Is(err, git.NoErrAlreadyUpToDate):
		return PushResult{Status: PushOK}
	case isRejection(strings.ToLower(err.Error())):
		return PushResult{Status: PushRejected, Err: classifyTransportError("push", w.remote.URL, w.remote.Branch, err)}
	default:
		return PushResult{Status: PushError, Err: ClassifyGitError(classifyTransportError("push", w.remote.URL, w.remote.Branch, err), "push", w.remote.URL)}
	}
}

func (w *WorkingCopy) hasStagedChanges() (bool, error) {
	status, err := w.wt.Status()
	if err != nil {
		return false, ClassifyGitError(err, "status", w.remote.URL)
	}
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true, nil
		}
	}
	return false, nil
}

// resolve maps a slash separated repository path to a filesystem path inside the checkout.
func (w *WorkingCopy) resolve(rel string) (string, error) {
	if rel == "" {
		return "", &PathError{Path: rel, Reason: "empty"}
	}
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		return "", &PathError{Path: rel, Reason: "must be relative"}
	}
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &PathError{Path: rel, Reason: "escapes the repository"}
	}
	if clean == ".git" || strings.HasPrefix(clean, ".git/") {
		return "", &PathError{Path: rel, Reason: "points into .git"}
	}
	return filepath.Join(w.dir, filepath.FromSlash(clean)), nil
}
