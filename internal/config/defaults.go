package config

import (
	"path"
	"strings"
)

const (
	DefaultBranch          = "main"
	DefaultMaxAttempts     = 5
	DefaultMessageTemplate = "Update {path} from {repository}@{revision}"
	DefaultNotifySubject   = "docpublish.runs"
	DefaultNotifyTimeout   = "5s"
	DefaultWatchDebounce   = "2s"
	DefaultRetryMaxDelay   = "10s"
)

// ApplyDefaults fills zero values with their defaults. It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Target.Branch == "" {
		cfg.Target.Branch = DefaultBranch
	}
	if cfg.Target.Name == "" {
		cfg.Target.Name = nameFromURL(cfg.Target.URL)
	}
	if cfg.Artifact.Output == "" {
		cfg.Artifact.Output = cfg.Artifact.Path
	}
	if cfg.Source.Dir == "" {
		cfg.Source.Dir = "."
	}
	if cfg.Source.DefaultBranch == "" {
		cfg.Source.DefaultBranch = DefaultBranch
	}

	if cfg.Publish.MaxAttempts == 0 {
		cfg.Publish.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Publish.MessageTemplate == "" {
		cfg.Publish.MessageTemplate = DefaultMessageTemplate
	}
	if mode := NormalizeRetryBackoff(string(cfg.Publish.RetryBackoff)); mode != "" {
		cfg.Publish.RetryBackoff = mode
	} else if cfg.Publish.RetryBackoff == "" {
		cfg.Publish.RetryBackoff = RetryBackoffFixed
	}
	if cfg.Publish.RetryInitialDelay == "" {
		cfg.Publish.RetryInitialDelay = "0s"
	}
	if cfg.Publish.RetryMaxDelay == "" {
		cfg.Publish.RetryMaxDelay = DefaultRetryMaxDelay
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Notify.Timeout == "" {
		cfg.Notify.Timeout = DefaultNotifyTimeout
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

// nameFromURL derives a directory-safe repository name from a clone URL.
func nameFromURL(rawURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if trimmed == "" {
		return "target"
	}
	// scp-like ssh form: git@host:org/repo.git
	if i := strings.LastIndex(trimmed, ":"); i >= 0 && !strings.Contains(trimmed, "://") {
		trimmed = trimmed[i+1:]
	}
	name := strings.TrimSuffix(path.Base(strings.ReplaceAll(trimmed, "\\", "/")), ".git")
	if name == "" || name == "." || name == "/" {
		return "target"
	}
	return name
}
