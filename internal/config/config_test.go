package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
target:
  url: https://example.com/org/docs.git
artifact:
  path: data/metrics.json
`))
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Target.Branch)
	assert.Equal(t, "docs", cfg.Target.Name)
	assert.Equal(t, "data/metrics.json", cfg.Artifact.Output)
	assert.Equal(t, ".", cfg.Source.Dir)
	assert.Equal(t, "main", cfg.Source.DefaultBranch)
	assert.Equal(t, 5, cfg.Publish.MaxAttempts)
	assert.Equal(t, DefaultMessageTemplate, cfg.Publish.MessageTemplate)
	assert.Equal(t, RetryBackoffFixed, cfg.Publish.RetryBackoff)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, DefaultNotifySubject, cfg.Notify.Subject)
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCS_PUSH_TOKEN", "s3cret")
	cfg, err := Parse([]byte(`
target:
  url: https://example.com/docs.git
  auth:
    type: token
    token: ${DOCS_PUSH_TOKEN}
artifact:
  path: metrics.json
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Target.Auth)
	assert.Equal(t, "s3cret", cfg.Target.Auth.Token)
	assert.False(t, cfg.Target.Auth.IsZero())
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing url":    "artifact:\n  path: a.json\n",
		"missing path":   "target:\n  url: x\n",
		"absolute path":  "target:\n  url: x\nartifact:\n  path: /etc/passwd\n",
		"escaping path":  "target:\n  url: x\nartifact:\n  path: ../a.json\n",
		"unclean path":   "target:\n  url: x\nartifact:\n  path: data//a.json\n",
		"git dir":        "target:\n  url: x\nartifact:\n  path: .git/config\n",
		"negative tries": "target:\n  url: x\nartifact:\n  path: a.json\npublish:\n  max_attempts: -1\n",
		"bad backoff":    "target:\n  url: x\nartifact:\n  path: a.json\npublish:\n  retry_backoff: random\n",
		"bad duration":   "target:\n  url: x\nartifact:\n  path: a.json\nwatch:\n  interval: soon\n",
		"bad auth type":  "target:\n  url: x\n  auth:\n    type: kerberos\nartifact:\n  path: a.json\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation), "got %v", err)
		})
	}
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "docs", nameFromURL("https://example.com/org/docs.git"))
	assert.Equal(t, "docs", nameFromURL("git@example.com:org/docs.git"))
	assert.Equal(t, "remote", nameFromURL("/tmp/x/remote.git/"))
	assert.Equal(t, "target", nameFromURL(""))
}

func TestLoadAndInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docpublish.yaml")

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "second init without force must fail")
	require.NoError(t, Init(path, true))

	t.Setenv("DOCS_PUSH_TOKEN", "tok")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/metrics.json", cfg.Artifact.Path)
	assert.Equal(t, "tok", cfg.Target.Auth.Token)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDurationOr("3s", time.Second))
	assert.Equal(t, time.Second, ParseDurationOr("", time.Second))
	assert.Equal(t, time.Second, ParseDurationOr("nope", time.Second))
	assert.Equal(t, slog.LevelDebug, LogLevel("DEBUG").SlogLevel())
}
