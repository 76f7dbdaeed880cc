package config

import "git.home.luguber.info/inful/docpublish/internal/foundation"

// RetryBackoffMode enumerates supported backoff strategies between publish attempts.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = foundation.NewNormalizer(map[string]RetryBackoffMode{
	string(RetryBackoffFixed):       RetryBackoffFixed,
	string(RetryBackoffLinear):      RetryBackoffLinear,
	string(RetryBackoffExponential): RetryBackoffExponential,
}, "")

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}
