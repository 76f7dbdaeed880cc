package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRevision   = "revision"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyAttempt    = "attempt"
	KeyOutcome    = "outcome"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyRepo       = "repository"
	KeyPath       = "path"
	KeyName       = "name"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Revision(rev string) slog.Attr   { return slog.String(KeyRevision, rev) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Commit(hash string) slog.Attr    { return slog.String(KeyCommit, short(hash)) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// short trims a full object hash to the 8 character form used in log lines.
func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
