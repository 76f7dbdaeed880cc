// Package source reads the triggering revision of the project repository and
// decides whether a run may publish.
package source

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	dgit "git.home.luguber.info/inful/docpublish/internal/git"
)

// Environment variables honoured as overrides (GitHub Actions naming).
const (
	EnvSHA       = "GITHUB_SHA"
	EnvRef       = "GITHUB_REF"
	EnvEventName = "GITHUB_EVENT_NAME"
)

// Revision is the change that triggered a run.
type Revision struct {
	Hash       string
	Ref        string // full ref name, e.g. refs/heads/main; empty when detached
	Event      string // CI event name when known
	Repository string // label used in commit messages
	Author     dgit.Identity
}

// Overrides replace values read from the repository. Empty fields are ignored.
type Overrides struct {
	SHA       string
	Ref       string
	EventName string
}

// OverridesFromEnv reads GITHUB_SHA, GITHUB_REF and GITHUB_EVENT_NAME.
func OverridesFromEnv() Overrides {
	return Overrides{
		SHA:       os.Getenv(EnvSHA),
		Ref:       os.Getenv(EnvRef),
		EventName: os.Getenv(EnvEventName),
	}
}

// Merge returns o with every non-empty field of other applied on top.
func (o Overrides) Merge(other Overrides) Overrides {
	if other.SHA != "" {
		o.SHA = other.SHA
	}
	if other.Ref != "" {
		o.Ref = other.Ref
	}
	if other.EventName != "" {
		o.EventName = other.EventName
	}
	return o
}

// Branch returns the short branch name of Ref, or "" when Ref is not a branch.
func (r Revision) Branch() string {
	name := plumbing.ReferenceName(r.Ref)
	if !name.IsBranch() {
		return ""
	}
	return name.Short()
}

// Short returns the abbreviated revision hash.
func (r Revision) Short() string {
	if len(r.Hash) > 7 {
		return r.Hash[:7]
	}
	return r.Hash
}

// OnBranch reports whether the revision is on defaultBranch. Runs for any other
// ref (pull requests, merge queues, tags) build but never publish.
func (r Revision) OnBranch(defaultBranch string) bool {
	return defaultBranch != "" && r.Branch() == defaultBranch
}

// Resolve opens the repository containing dir and reads the revision named by
// o.SHA, or HEAD. label names the repository in messages; the directory name
// is used when empty.
func Resolve(dir, label string, o Overrides) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Revision{}, ferrors.WrapError(err, ferrors.CategoryGit, "failed to open source repository").
			WithContext("dir", dir).
			Build()
	}

	rev := Revision{Event: o.EventName, Repository: label}
	if rev.Repository == "" {
		rev.Repository = repositoryLabel(repo, dir)
	}

	head, headErr := repo.Head()
	var hash plumbing.Hash
	if o.SHA != "" {
		resolved, err := repo.ResolveRevision(plumbing.Revision(o.SHA))
		if err != nil {
			return Revision{}, ferrors.WrapError(err, ferrors.CategoryGit, "failed to read triggering commit").
				WithContext("revision", o.SHA).
				Build()
		}
		hash = *resolved
	} else {
		if headErr != nil {
			return Revision{}, ferrors.WrapError(headErr, ferrors.CategoryGit, "failed to resolve HEAD of source repository").
				WithContext("dir", dir).
				Build()
		}
		hash = head.Hash()
	}
	// The checked out branch names the ref only when it points at the revision.
	if headErr == nil && head.Hash() == hash && head.Name().IsBranch() {
		rev.Ref = head.Name().String()
	}
	if o.Ref != "" {
		rev.Ref = o.Ref
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return Revision{}, ferrors.WrapError(err, ferrors.CategoryGit, "failed to read triggering commit").
			WithContext("revision", hash.String()).
			Build()
	}
	rev.Hash = commit.Hash.String()
	rev.Author = dgit.Identity{Name: commit.Author.Name, Email: commit.Author.Email}
	return rev, nil
}

func repositoryLabel(repo *git.Repository, dir string) string {
	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		u := strings.TrimSuffix(strings.TrimRight(remote.Config().URLs[0], "/"), ".git")
		if i := strings.LastIndexAny(u, "/:"); i >= 0 {
			u = u[i+1:]
		}
		if u != "" {
			return u
		}
	}
	if wt, err := repo.Worktree(); err == nil {
		return filepath.Base(wt.Filesystem.Root())
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}
