package journal

import (
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

var (
	// ErrRunNotFound indicates no record exists for the requested run id.
	ErrRunNotFound = errors.NewError(errors.CategoryNotFound, "run not found in journal").Build()
)

func journalError(message string, cause error) error {
	return errors.WrapError(cause, errors.CategoryJournal, message).Build()
}
