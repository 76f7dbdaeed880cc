package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docpublish/internal/pipeline"
	"git.home.luguber.info/inful/docpublish/internal/source"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	SHA         string `name:"sha" help:"Source revision to publish (default: $GITHUB_SHA, then HEAD)"`
	Ref         string `name:"ref" help:"Ref of the triggering event (default: $GITHUB_REF, then the checked out branch)"`
	Event       string `name:"event" help:"Triggering event name (default: $GITHUB_EVENT_NAME)"`
	MaxAttempts int    `name:"max-attempts" help:"Override publish.max_attempts"`
	Keep        bool   `help:"Keep the working copy after the run"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	if p.MaxAttempts > 0 {
		cfg.Publish.MaxAttempts = p.MaxAttempts
	}
	if p.Keep {
		cfg.Workspace.Keep = true
	}

	overrides := source.OverridesFromEnv().Merge(source.Overrides{SHA: p.SHA, Ref: p.Ref, EventName: p.Event})
	runner, closeRunner, err := newRunner(cfg, logger, overrides)
	if err != nil {
		return err
	}
	defer closeRunner()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := runner.Run(ctx)
	printReport(g, rep)
	return runError(rep, err)
}

func printReport(g *Global, rep pipeline.Report) {
	out := g.out()
	switch {
	case rep.Skipped:
		_, _ = fmt.Fprintf(out, "skipped: %s is not on the default branch\n", rep.Revision.Short())
	case !rep.Result.Commit.IsZero() && rep.Result.Outcome.Success():
		_, _ = fmt.Fprintf(out, "%s: %s (attempts=%d rebases=%d)\n", rep.Outcome(), rep.Result.Commit, rep.Result.Attempts, rep.Result.Rebases)
	default:
		_, _ = fmt.Fprintf(out, "%s (attempts=%d rebases=%d)\n", rep.Outcome(), rep.Result.Attempts, rep.Result.Rebases)
	}
}
