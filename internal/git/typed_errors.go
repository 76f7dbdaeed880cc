package git

import (
	"fmt"
	"strings"
)

// RebaseConflictError reports a path changed both upstream and locally to different content.
type RebaseConflictError struct {
	Path     string
	Commit   string
	Upstream string
}

func (e *RebaseConflictError) Error() string {
	return fmt.Sprintf("rebase conflict on %s replaying %s onto %s", e.Path, short(e.Commit), short(e.Upstream))
}

// MergeCommitError is returned when local history contains a merge, which replay does not support.
type MergeCommitError struct{ Commit string }

func (e *MergeCommitError) Error() string {
	return fmt.Sprintf("cannot replay merge commit %s", short(e.Commit))
}

// PathError rejects artifact paths that would escape the working copy.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string { return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason) }

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// Base typed git errors enabling structured classification without string parsing upstream.
type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

type RemoteDivergedError struct {
	Op, URL, Branch string
	Err             error
}

func (e *RemoteDivergedError) Error() string {
	return fmt.Sprintf("%s remote diverged %s@%s: %v", e.Op, e.URL, e.Branch, e.Err)
}
func (e *RemoteDivergedError) Unwrap() error { return e.Err }

// classifyTransportError wraps fetch and push failures into typed variants when possible.
func classifyTransportError(op, url, branch string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "auth") || strings.Contains(l, "permission denied"):
		return &AuthError{Op: op, URL: url, Err: err}
	case strings.Contains(l, "repository not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: op, URL: url, Err: err}
	case isRejection(l):
		return &RemoteDivergedError{Op: op, URL: url, Branch: branch, Err: err}
	default:
		return err
	}
}
