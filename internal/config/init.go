package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init writes an example configuration file to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Target: TargetConfig{
			URL:    "https://github.com/example/docs.git",
			Branch: "main",
			Auth:   &AuthConfig{Type: AuthTypeToken, Token: "${DOCS_PUSH_TOKEN}"},
		},
		Artifact: ArtifactConfig{
			Path:    "data/metrics.json",
			Output:  "target/metrics.json",
			Command: []string{"make", "metrics"},
			Inputs:  []string{"src"},
		},
		Source: SourceConfig{
			Dir:           ".",
			DefaultBranch: "main",
		},
		Publish: PublishConfig{
			MaxAttempts:     DefaultMaxAttempts,
			MessageTemplate: DefaultMessageTemplate,
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
