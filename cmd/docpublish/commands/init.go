package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/docpublish/internal/config"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	// With an output directory the config is placed there as "docpublish.yaml".
	if i.Output != "" {
		return RunInit(g, filepath.Join(i.Output, "docpublish.yaml"), i.Force)
	}
	return RunInit(g, root.Config, i.Force)
}

func RunInit(g *Global, configPath string, force bool) error {
	out := g.out()
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		return errors.ConfigError("initialization failed").
			WithCause(err).
			WithContext("path", configPath).
			Build()
	}
	_, _ = fmt.Fprintln(out, "initialized successfully")
	return nil
}
