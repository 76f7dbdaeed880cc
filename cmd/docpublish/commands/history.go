package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/journal"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
	RunID string `name:"run" help:"Show a single run by id"`
	JSON  bool   `name:"json" help:"Print records as JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, _, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.ConfigError("journal.path is not configured").
			WithContext("field", "journal.path").
			Build()
	}
	store, err := journal.NewSQLiteStore(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var records []journal.Record
	if h.RunID != "" {
		rec, err := store.ByRun(ctx, h.RunID)
		if err != nil {
			return err
		}
		records = []journal.Record{rec}
	} else {
		records, err = store.Recent(ctx, h.Limit)
		if err != nil {
			return err
		}
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(records))
	}
	return printRecords(g, records)
}

type recordJSON struct {
	RunID      string    `json:"run_id"`
	Revision   string    `json:"revision"`
	Target     string    `json:"target"`
	Branch     string    `json:"branch"`
	Path       string    `json:"path"`
	Outcome    string    `json:"outcome"`
	Attempts   int       `json:"attempts"`
	Rebases    int       `json:"rebases"`
	Commit     string    `json:"commit,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

func toJSON(records []journal.Record) []recordJSON {
	out := make([]recordJSON, 0, len(records))
	for _, r := range records {
		out = append(out, recordJSON{
			RunID:      r.RunID,
			Revision:   r.Revision,
			Target:     r.TargetURL,
			Branch:     r.Branch,
			Path:       r.Path,
			Outcome:    r.Outcome,
			Attempts:   r.Attempts,
			Rebases:    r.Rebases,
			Commit:     r.Commit,
			Error:      r.Error,
			StartedAt:  r.StartedAt,
			DurationMS: r.Duration.Milliseconds(),
		})
	}
	return out
}

func printRecords(g *Global, records []journal.Record) error {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(g.out(), "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tRUN\tOUTCOME\tREVISION\tATTEMPTS\tREBASES\tCOMMIT")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			shortID(r.RunID, 8),
			r.Outcome,
			shortID(r.Revision, 7),
			r.Attempts,
			r.Rebases,
			shortID(r.Commit, 7))
	}
	return tw.Flush()
}

func shortID(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
