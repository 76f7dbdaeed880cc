package git

import (
	"os"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// EnsureWorkspace creates the directory clones are placed in.
func (c *Client) EnsureWorkspace() error {
	if err := os.MkdirAll(c.workspaceDir, 0o750); err != nil {
		return errors.NewError(errors.CategoryFileSystem, "failed to create workspace directory").
			WithCause(err).
			WithContext("path", c.workspaceDir).
			Build()
	}
	return nil
}
