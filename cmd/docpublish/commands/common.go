package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "DOCPUBLISH_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"docpublish.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides the configuration"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Publish PublishCmd `cmd:"" help:"Produce the artifact and publish it to the target repository"`
	Watch   WatchCmd   `cmd:"" help:"Re-run publish when inputs change or on an interval"`
	History HistoryCmd `cmd:"" help:"List recent runs from the journal"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(c.newLogger(config.LoggingConfig{}))
	return nil
}

// newLogger builds the process logger. Precedence: --verbose, then
// DOCPUBLISH_LOG_LEVEL, then the configuration file.
func (c *CLI) newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := cfg.Level.SlogLevel()
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		level = config.NormalizeLogLevel(raw).SlogLevel()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig reads the configuration file and reconfigures logging from it.
func (c *CLI) loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		if errors.IsClassified(err) {
			return nil, nil, err
		}
		return nil, nil, errors.ConfigError("failed to load configuration").
			WithCause(err).
			WithContext("path", c.Config).
			Build()
	}
	logger := c.newLogger(cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
