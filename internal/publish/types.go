package publish

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docpublish/internal/git"
)

// ErrRetriesExhausted marks a run that used every push attempt without landing.
var ErrRetriesExhausted = errors.New("push retries exhausted")

// DefaultMaxAttempts bounds the number of pushes per run.
const DefaultMaxAttempts = 5

// Artifact is the generated file to publish. Path is slash separated and
// relative to the target repository root; Bytes are never interpreted.
type Artifact struct {
	Path  string
	Bytes []byte
}

// Identity is the author the commit is attributed to.
type Identity = git.Identity

// WorkingCopy is the part of the staging repository client the coordinator drives.
// *git.WorkingCopy implements it.
type WorkingCopy interface {
	WriteFile(path string, data []byte) error
	Stage(path string) error
	Commit(message string, id Identity) (git.CommitResult, error)
	Push(ctx context.Context) git.PushResult
	PullRebase(ctx context.Context) (git.RebaseResult, error)
	Head() (plumbing.Hash, error)
}

// Outcome is the terminal state of a publish.
type Outcome int

const (
	NoChange Outcome = iota + 1
	Published
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NoChange:
		return "nochange"
	case Published:
		return "published"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Success reports whether the outcome maps to a zero exit status.
func (o Outcome) Success() bool { return o == NoChange || o == Published }

// Result describes what a publish did.
type Result struct {
	Outcome  Outcome
	Attempts int           // push attempts performed
	Rebases  int           // pull-rebases performed
	Commit   plumbing.Hash // landed commit; zero unless Published
	Err      error         // cause when Failed
}

var _ WorkingCopy = (*git.WorkingCopy)(nil)
