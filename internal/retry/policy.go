package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/config"
)

// Policy describes how long to wait before retrying after a rejected push.
// A zero Initial delay retries immediately. It is immutable after construction.
type Policy struct {
	Mode    config.RetryBackoffMode // fixed|linear|exponential
	Initial time.Duration           // base delay
	Max     time.Duration           // cap for growth
}

// Immediate returns a policy that never waits.
func Immediate() Policy {
	return Policy{Mode: config.RetryBackoffFixed}
}

// NewPolicy builds a policy from raw config fields; unknown modes fall back to fixed.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration) Policy {
	p := Immediate()
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if p.Max > 0 && p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds the policy described by the publish section.
func FromConfig(cfg config.PublishConfig) Policy {
	return NewPolicy(
		config.NormalizeRetryBackoff(string(cfg.RetryBackoff)),
		config.ParseDurationOr(cfg.RetryInitialDelay, 0),
		config.ParseDurationOr(cfg.RetryMaxDelay, 0),
	)
}

// Delay returns the backoff delay for the given retry number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 || p.Initial <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffExponential:
		shift := retryCount - 1
		if shift > 30 {
			shift = 30
		}
		d = p.Initial * (1 << shift)
	case config.RetryBackoffLinear:
		d = time.Duration(retryCount) * p.Initial
	default:
		d = p.Initial
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// Wait blocks for Delay(retryCount) or until ctx is done.
func (p Policy) Wait(ctx context.Context, retryCount int) error {
	d := p.Delay(retryCount)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial < 0 {
		return fmt.Errorf("initial must be >=0")
	}
	if p.Max < 0 {
		return fmt.Errorf("max must be >=0")
	}
	return nil
}
