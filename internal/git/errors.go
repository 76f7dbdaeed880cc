package git

import (
	"strings"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// GitError simplifies creating a git-scoped ClassifiedError.
func GitError(message string) *errors.ErrorBuilder {
	return errors.NewError(errors.CategoryGit, message)
}

// ClassifyGitError translates go-git errors into ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}

	// Already classified
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())

	builder := GitError("git operation failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("url", url)

	switch {
	case strings.Contains(l, "authentication required") || strings.Contains(l, "authentication failed") ||
		strings.Contains(l, "authorization failed") || strings.Contains(l, "not authorized") ||
		strings.Contains(l, "invalid credentials") || strings.Contains(l, "permission denied"):
		builder.WithCategory(errors.CategoryAuth).UserAction()
	case strings.Contains(l, "repository not found") || strings.Contains(l, "does not exist"):
		builder.WithCategory(errors.CategoryNotFound).UserAction()
	case strings.Contains(l, "remote hung up") || strings.Contains(l, "connection reset") || strings.Contains(l, "connection refused") ||
		strings.Contains(l, "timeout") || strings.Contains(l, "no route to host"):
		builder.WithCategory(errors.CategoryNetwork).Retryable()
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		builder.WithCategory(errors.CategoryNetwork).Retryable()
	case isRejection(l):
		builder.WithContext("diverged", true).Immediate()
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		builder.WithCategory(errors.CategoryConfig).UserAction()
	}

	return builder.Build()
}

// isRejection reports whether a lowercased push error means the remote branch
// moved ahead of the local one.
func isRejection(l string) bool {
	if strings.Contains(l, "hook declined") {
		return false
	}
	return strings.Contains(l, "non-fast-forward") ||
		strings.Contains(l, "fetch first") ||
		strings.Contains(l, "updates were rejected") ||
		strings.Contains(l, "[rejected]")
}
