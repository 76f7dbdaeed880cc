// Package workspace manages the ephemeral directory a run clones the target
// repository into.
//
// Each run gets its own timestamped directory (e.g. docpublish-20251214-122336-123)
// that is removed after the run, unless the manager was told to keep it for
// inspection.
package workspace
