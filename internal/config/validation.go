package config

import (
	"fmt"
	"path"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// Validate checks a defaulted configuration and returns a classified validation error.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Target.URL) == "" {
		return invalid("target.url is required", "target.url", "")
	}
	if err := ValidateArtifactPath(cfg.Artifact.Path); err != nil {
		return err
	}
	if cfg.Publish.MaxAttempts < 1 {
		return invalid("publish.max_attempts must be at least 1", "publish.max_attempts", cfg.Publish.MaxAttempts)
	}
	if NormalizeRetryBackoff(string(cfg.Publish.RetryBackoff)) == "" {
		return invalid("publish.retry_backoff must be fixed, linear or exponential", "publish.retry_backoff", cfg.Publish.RetryBackoff)
	}

	durations := map[string]string{
		"publish.retry_initial_delay": cfg.Publish.RetryInitialDelay,
		"publish.retry_max_delay":     cfg.Publish.RetryMaxDelay,
		"notify.timeout":              cfg.Notify.Timeout,
		"watch.debounce":              cfg.Watch.Debounce,
		"watch.interval":              cfg.Watch.Interval,
	}
	for field, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return invalid(fmt.Sprintf("%s must be a non-negative duration", field), field, raw)
		}
	}

	if cfg.Target.Auth != nil {
		switch cfg.Target.Auth.Type {
		case "", AuthTypeNone, AuthTypeSSH, AuthTypeToken, AuthTypeBasic:
		default:
			return invalid("unsupported target.auth.type", "target.auth.type", cfg.Target.Auth.Type)
		}
	}
	return nil
}

// ValidateArtifactPath checks that p is a clean, relative, slash-separated path
// that stays inside the repository and outside its .git directory.
func ValidateArtifactPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return invalid("artifact.path is required", "artifact.path", p)
	}
	if strings.Contains(p, "\\") || path.IsAbs(p) {
		return invalid("artifact.path must be a relative slash-separated path", "artifact.path", p)
	}
	clean := path.Clean(p)
	if clean != p || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return invalid("artifact.path must be clean and stay inside the repository", "artifact.path", p)
	}
	if first, _, _ := strings.Cut(clean, "/"); first == ".git" {
		return invalid("artifact.path must not point into .git", "artifact.path", p)
	}
	return nil
}

// ParseDurationOr parses raw, returning fallback when raw is empty or invalid.
func ParseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func invalid(message, field string, value any) error {
	return ferrors.ValidationError(message).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
