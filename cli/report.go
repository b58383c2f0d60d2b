package cli

// This file contains the report command and the selection of completed runs
// by index or ID prefix.

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
	"github.com/waterpistol/waterpistol/registry"
	"github.com/waterpistol/waterpistol/simlog"
)

// selectRun picks a completed run from runs, which are ordered newest
// first. arg is 0 for the last run, -1 for the one before and so on, or a
// prefix of the run ID.
func selectRun(runs []model.RunSummary, arg string) (model.RunSummary, error) {
	var completed []model.RunSummary
	for _, run := range runs {
		if run.CreationDate != nil {
			completed = append(completed, run)
		}
	}
	if len(completed) == 0 {
		return model.RunSummary{}, fmt.Errorf("no completed runs found")
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return model.RunSummary{}, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, -2 for third-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(completed) {
			return model.RunSummary{}, fmt.Errorf("index %s out of range (only %d completed runs)", arg, len(completed))
		}
		return completed[index], nil
	}

	prefix := strings.ToLower(arg)
	for _, run := range completed {
		if strings.HasPrefix(strings.ToLower(run.Name), prefix) {
			return run, nil
		}
	}
	return model.RunSummary{}, fmt.Errorf("no run found matching ID: %s", arg)
}

// findRun lists the runs of the results directory and selects one of them.
func (a *App) findRun(arg string) (*history.FS, model.RunSummary, error) {
	repo, err := a.repository()
	if err != nil {
		return nil, model.RunSummary{}, err
	}

	runs, err := registry.New(a.logger, repo, nil).ListRuns()
	if err != nil {
		return nil, model.RunSummary{}, err
	}

	run, err := selectRun(runs, arg)
	if err != nil {
		return nil, model.RunSummary{}, err
	}
	return repo, run, nil
}

func (a *App) report(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" {
		arg = "0"
	}

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return a.reportFile(arg)
	}

	_, run, err := a.findRun(arg)
	if err != nil {
		return err
	}
	printRecord(a.out, run.Name, run.Data)
	return nil
}

func (a *App) reportFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := simlog.ParseReport(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	printReport(a.out, report)
	return nil
}
