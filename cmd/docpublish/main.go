package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpublish/cmd/docpublish/commands"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docpublish"),
		kong.Description("Publish a generated artifact to a downstream Git repository"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	err := parser.Run(&commands.Global{}, cli)
	adapter := errors.NewCLIErrorAdapter(cli.Verbose, nil)
	os.Exit(adapter.Handle(err))
}
