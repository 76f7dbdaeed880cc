// Package producer runs the external command that emits the artifact and
// reads the emitted file.
package producer

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/logfields"
	"git.home.luguber.info/inful/docpublish/internal/publish"
)

// Producer builds the artifact. The command is opaque; only its output file matters.
type Producer struct {
	Command []string          // argv; empty means Output already exists
	Dir     string            // working directory; relative Output paths resolve against it
	Env     map[string]string // added to the inherited environment
	Output  string            // file the command emits
	Path    string            // artifact path inside the target repository
	Logger  *slog.Logger
}

// FromConfig builds a producer for the artifact section.
func FromConfig(cfg config.ArtifactConfig) *Producer {
	return &Producer{
		Command: cfg.Command,
		Dir:     cfg.Dir,
		Env:     cfg.Env,
		Output:  cfg.Output,
		Path:    cfg.Path,
	}
}

// Produce runs the command, if any, and reads the output file into an Artifact.
func (p *Producer) Produce(ctx context.Context) (publish.Artifact, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(p.Command) > 0 {
		if err := p.run(ctx, logger); err != nil {
			return publish.Artifact{}, err
		}
	}

	output := p.outputPath()
	data, err := os.ReadFile(output) // #nosec G304 -- path comes from configuration
	if err != nil {
		return publish.Artifact{}, errors.ProducerError("producer output not found").
			WithCause(err).
			WithContext("output", output).
			Build()
	}
	logger.Debug("Read artifact", logfields.Path(output), slog.Int("bytes", len(data)))
	return publish.Artifact{Path: p.Path, Bytes: data}, nil
}

func (p *Producer) outputPath() string {
	if filepath.IsAbs(p.Output) || p.Dir == "" {
		return p.Output
	}
	return filepath.Join(p.Dir, p.Output)
}

func (p *Producer) run(ctx context.Context, logger *slog.Logger) error {
	// #nosec G204 -- the producer command is operator configuration
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	cmd.Dir = p.Dir
	cmd.Env = append(os.Environ(), envList(p.Env)...)

	stdout := newLogWriter(logger, "stdout")
	stderr := newLogWriter(logger, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Info("Running producer", slog.Any("command", p.Command), logfields.Path(p.Dir))
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	b := errors.ProducerError("producer command failed").
		WithCause(err).
		WithContext("command", p.Command[0])
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		b.WithContext("exit_code", exitErr.ExitCode())
	}
	if tail := stderr.Tail(); tail != "" {
		b.WithContext("stderr", tail)
	}
	return b.Build()
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// logWriter forwards complete lines of command output to the logger at debug.
type logWriter struct {
	mu     sync.Mutex
	logger *slog.Logger
	stream string
	buf    bytes.Buffer
	last   string
}

func newLogWriter(logger *slog.Logger, stream string) *logWriter {
	return &logWriter{logger: logger, stream: stream}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err == io.EOF {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// Tail returns the last line written.
func (w *logWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *logWriter) emit(line string) {
	if line == "" {
		return
	}
	w.last = line
	w.logger.Debug("producer output", slog.String("stream", w.stream), slog.String("line", line))
}
