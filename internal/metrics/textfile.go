package metrics

import (
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format. The file is replaced atomically.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.FileSystemError("failed to create metrics directory").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return errors.FileSystemError("failed to write metrics textfile").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}
