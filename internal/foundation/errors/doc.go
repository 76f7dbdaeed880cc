// Package errors provides foundational, type-safe error primitives used across docpublish.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, git, auth, publish, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for exit codes and error presentation
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryGit, "push failed").
//		WithRetry(errors.RetryImmediate).
//		WithContext("url", remoteURL).
//		WithCause(originalErr).
//		Build()
package errors
