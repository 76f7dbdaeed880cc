package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the publisher configuration.
type Config struct {
	Target    TargetConfig    `yaml:"target"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Source    SourceConfig    `yaml:"source"`
	Publish   PublishConfig   `yaml:"publish"`
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`
	Journal   JournalConfig   `yaml:"journal,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
}

// TargetConfig describes the downstream repository the artifact is published to.
type TargetConfig struct {
	URL    string      `yaml:"url"`
	Name   string      `yaml:"name,omitempty"` // Working copy directory name; derived from URL when empty
	Branch string      `yaml:"branch,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// ArtifactConfig describes how the artifact is produced and where it lands.
type ArtifactConfig struct {
	Path    string            `yaml:"path"`              // Path inside the target repository
	Output  string            `yaml:"output"`            // Local file emitted by the producer
	Command []string          `yaml:"command,omitempty"` // Producer argv; empty means Output already exists
	Dir     string            `yaml:"dir,omitempty"`     // Producer working directory
	Env     map[string]string `yaml:"env,omitempty"`
	Inputs  []string          `yaml:"inputs,omitempty"` // Paths watched in watch mode
}

// SourceConfig describes the project repository whose revision triggers the run.
type SourceConfig struct {
	Dir           string `yaml:"dir,omitempty"`
	Name          string `yaml:"name,omitempty"` // Repository label used in commit messages
	DefaultBranch string `yaml:"default_branch,omitempty"`
}

// PublishConfig tunes the publish coordinator.
type PublishConfig struct {
	MaxAttempts       int              `yaml:"max_attempts,omitempty"`
	MessageTemplate   string           `yaml:"message_template,omitempty"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty"`
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty"`
}

// WorkspaceConfig controls where working copies are cloned.
type WorkspaceConfig struct {
	BaseDir string `yaml:"base_dir,omitempty"`
	Keep    bool   `yaml:"keep,omitempty"` // Keep the working copy after the run (debugging)
}

// JournalConfig enables the SQLite run journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig enables NATS outcome events when NATSURL is set.
type NotifyConfig struct {
	NATSURL   string `yaml:"nats_url,omitempty"`
	Subject   string `yaml:"subject,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	JetStream bool   `yaml:"jetstream,omitempty"` // Publish through JetStream and wait for the ack
}

// MetricsConfig enables writing Prometheus metrics to a textfile collector file.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Interval string `yaml:"interval,omitempty"` // Periodic re-run; empty disables
	Debounce string `yaml:"debounce,omitempty"`
}

// Load loads configuration from the specified file, applies defaults and validates it.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath) // #nosec G304 -- path comes from the CLI
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML (after ${VAR} expansion), applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFiles loads .env and .env.local when present. Existing process
// environment variables are never overwritten.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", envPath), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", envPath))
	}
}
