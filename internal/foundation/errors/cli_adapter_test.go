package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "publish failure", err: PublishError("retries exhausted").Build(), expected: 1},
		{name: "wrapped publish failure", err: fmt.Errorf("run: %w", PublishError("x").Build()), expected: 1},
		{name: "validation error", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "auth error", err: AuthError("unauthorized").Build(), expected: 5},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "producer error", err: ProducerError("exit 2").Build(), expected: 11},
		{name: "unclassified error", err: errors.New("unknown error"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_Handle(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out

	err := PublishError("push retries exhausted").
		WithCause(errors.New("non-fast-forward update")).
		WithContext("attempts", 5).
		Build()

	if code := adapter.Handle(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "push retries exhausted") {
		t.Errorf("expected diagnostic on stderr, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "attempts=5") {
		t.Errorf("expected context in log output, got %q", logs.String())
	}
}
