package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-ap/errors"
	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/journal"
	"github.com/beekhof/discord-event-sync/internal/sync"
)

var HistoryCmd = cli.Command{
	Name:  "history",
	Usage: "Shows the most recent pass reports from the journal",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "limit, n",
			Usage: "Number of reports to show",
			Value: 10,
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print reports as JSON",
		},
		&cli.BoolFlag{
			Name:  "actions",
			Usage: "Include the per-event actions",
		},
	},
	Action: runHistory,
}

func runHistory(c *cli.Context) error {
	cfg, err := loadPartialConfig(c)
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return errors.Newf("no journal configured, set --journal or journal_path")
	}

	if c.Int("limit") < 1 {
		return errors.Newf("--limit must be at least 1, got %d", c.Int("limit"))
	}

	reports, err := journal.New(journal.Config{Path: cfg.JournalPath}).Recent(c.Int("limit"))
	if err != nil {
		return errors.Annotatef(err, "failed to read journal")
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	printReports(os.Stdout, reports, c.Bool("actions"))
	return nil
}

func printReports(w io.Writer, reports []sync.Report, withActions bool) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No passes recorded.")
		return
	}
	for _, r := range reports {
		dry := ""
		if r.DryRun {
			dry = " (dry run)"
		}
		fmt.Fprintf(w, "%s %-6s%s created=%d updated=%d deleted=%d unchanged=%d skipped=%d took=%s\n",
			r.StartedAt.Local().Format(time.RFC3339), r.State, dry,
			r.Count(sync.ActionCreated), r.Count(sync.ActionUpdated), r.Count(sync.ActionDeleted),
			r.Count(sync.ActionUnchanged), r.Count(sync.ActionSkipped),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		}
		if !withActions {
			continue
		}
		for _, a := range r.Actions {
			if a.Kind == sync.ActionUnchanged {
				continue
			}
			fmt.Fprintf(w, "    %-9s %-20s %s", a.Kind, a.DiscordID, a.Name)
			if a.Reason != "" {
				fmt.Fprintf(w, " (%s)", a.Reason)
			}
			fmt.Fprintln(w)
		}
	}
}
