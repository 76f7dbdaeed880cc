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
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/docpublish/internal/auth"
	appcfg "git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
)

const remoteName = "origin"

// Remote identifies the publication target.
type Remote struct {
	URL    string
	Branch string
	Name   string
	Auth   *appcfg.AuthConfig
}

// RemoteFromConfig builds a Remote from the target section of the configuration.
func RemoteFromConfig(t appcfg.TargetConfig) Remote {
	return Remote{URL: t.URL, Branch: t.Branch, Name: t.Name, Auth: t.Auth}
}

// Client handles Git operations
type Client struct {
	workspaceDir string
	auth         *auth.Manager
}

// NewClient creates a new Git client with the specified workspace directory
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir, auth: auth.DefaultManager}
}

// Clone creates a fresh working copy of remote inside the workspace, creating the
// workspace directory when missing. Any previous checkout at the same location
// is removed first. An empty remote, or one missing the target branch, yields an initialised repository whose HEAD points
// at the branch so the first publish creates it.
func (c *Client) Clone(ctx context.Context, remote Remote) (*WorkingCopy, error) {
	if remote.Branch == "" {
		remote.Branch = appcfg.DefaultBranch
	}
	if remote.Name == "" {
		remote.Name = "target"
	}
	if err := c.EnsureWorkspace(); err != nil {
		return nil, err
	}
	repoPath := filepath.Join(c.workspaceDir, remote.Name)
	slog.Debug("Cloning repository", logfields.URL(remote.URL), logfields.Name(remote.Name), logfields.Branch(remote.Branch), logfields.Path(repoPath))
	if err := os.RemoveAll(repoPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing directory: %w", err)
	}

	method, err := c.auth.CreateAuth(remote.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to setup authentication: %w", err)
	}

	repository, err := git.PlainCloneContext(ctx, repoPath, false, &git.CloneOptions{
		URL:           remote.URL,
		Auth:          method,
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(remote.Branch),
		SingleBranch:  true,
		Tags:          git.NoTags,
	})
	switch {
	case err == nil:
	case isMissingBranch(err):
		slog.Info("Target branch does not exist yet; starting from an empty history",
			logfields.URL(remote.URL), logfields.Branch(remote.Branch))
		repository, err = initEmpty(repoPath, remote)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ClassifyGitError(classifyTransportError("clone", remote.URL, remote.Branch, err), "clone", remote.URL)
	}

	return newWorkingCopy(repository, repoPath, remote, method)
}

func isMissingBranch(err error) bool {
	if errors.Is(err, transport.ErrEmptyRemoteRepository) || errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var noMatch git.NoMatchingRefSpecError
	return errors.As(err, &noMatch)
}

func initEmpty(repoPath string, remote Remote) (*git.Repository, error) {
	if err := os.RemoveAll(repoPath); err != nil {
		return nil, fmt.Errorf("failed to remove partial clone: %w", err)
	}
	repository, err := git.PlainInit(repoPath, false)
	if err != nil {
		return nil, ClassifyGitError(err, "init", remote.URL)
	}
	if _, err := repository.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{remote.URL}}); err != nil {
		return nil, ClassifyGitError(err, "init", remote.URL)
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(remote.Branch))
	if err := repository.Storer.SetReference(head); err != nil {
		return nil, ClassifyGitError(err, "init", remote.URL)
	}
	return repository, nil
}
