package cli

// This file contains the list command for displaying runs.

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/registry"
)

func (a *App) list(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	repo, err := a.repository()
	if err != nil {
		return err
	}

	runs, err := registry.New(a.logger, repo, nil).ListRuns()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No runs found")
		return nil
	}

	displayRuns := runs
	if limit > 0 && limit < len(displayRuns) {
		displayRuns = displayRuns[:limit]
	}

	fmt.Fprintf(a.out, "\n=== Runs (%d total) ===\n\n", len(runs))
	for _, run := range displayRuns {
		printSummary(a.out, run)
		if run.CreationDate != nil {
			fmt.Fprintf(a.out, "   %s\n", repo.Path(history.Completed(run.Name)))
		}
		fmt.Fprintln(a.out)
	}

	fmt.Fprintf(a.out, "View report: %s report <ID>\n", AppName)
	fmt.Fprintf(a.out, "View latencies: %s profile <ID>\n", AppName)
	return nil
}
