package producer

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestProduceReadsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metrics.json"), []byte(`{"v":1}`), 0o600))

	p := FromConfig(config.ArtifactConfig{Path: "data/metrics.json", Output: "metrics.json", Dir: dir})
	art, err := p.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "data/metrics.json", art.Path)
	assert.Equal(t, []byte(`{"v":1}`), art.Bytes)
}

func TestProduceRunsCommand(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	var logs bytes.Buffer
	p := &Producer{
		Command: []string{"/bin/sh", "-c", `echo building; printf '%s' "$GREETING" > out.txt`},
		Dir:     dir,
		Env:     map[string]string{"GREETING": "v2"},
		Output:  "out.txt",
		Path:    "out.txt",
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	art, err := p.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2", string(art.Bytes))
	assert.Contains(t, logs.String(), "line=building")
}

func TestProduceCommandFailure(t *testing.T) {
	skipWithoutShell(t)
	p := &Producer{
		Command: []string{"/bin/sh", "-c", "echo broken >&2; exit 3"},
		Dir:     t.TempDir(),
		Output:  "out.txt",
		Path:    "out.txt",
	}
	_, err := p.Produce(context.Background())
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryProducer, ce.Category())
	code, _ := ce.Context().Get("exit_code")
	assert.Equal(t, 3, code)
	tail, _ := ce.Context().GetString("stderr")
	assert.Equal(t, "broken", tail)
}

func TestProduceMissingOutput(t *testing.T) {
	p := &Producer{Dir: t.TempDir(), Output: "missing.json", Path: "missing.json"}
	_, err := p.Produce(context.Background())
	assert.True(t, errors.HasCategory(err, errors.CategoryProducer))
}

func TestLogWriterSplitsLines(t *testing.T) {
	var logs bytes.Buffer
	w := newLogWriter(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})), "stdout")
	_, _ = w.Write([]byte("one\ntw"))
	_, _ = w.Write([]byte("o\nthree"))
	assert.Equal(t, "two", w.Tail())
	w.Flush()
	assert.Equal(t, "three", w.Tail())
	assert.Contains(t, logs.String(), "line=one")
}
