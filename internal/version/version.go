// Package version carries build metadata injected with ldflags, e.g.
// go build -ldflags "-X git.home.luguber.info/inful/docpublish/internal/version.Version=v0.3.0".
package version

// Version is reported by `docpublish --version`.
var Version = "dev"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
