package cli

// This file contains the run command executing a simulation in the
// foreground.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/config"
	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/runner"
)

// parseParams overlays name=value pairs on the configured defaults. Only
// parameters declared in the configuration are accepted.
func parseParams(sim config.Simulation, pairs []string) (map[string]string, error) {
	params := sim.Defaults()
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", pair)
		}
		if _, known := params[name]; !known {
			names := sim.Names()
			sort.Strings(names)
			return nil, fmt.Errorf("unknown parameter %q (known: %s)", name, strings.Join(names, ", "))
		}
		params[name] = value
	}
	return params, nil
}

func (a *App) run(ctx *cli.Context) error {
	if a.cfg.Simulation.SimulationClass == "" {
		return fmt.Errorf("no simulation_class configured")
	}

	params, err := parseParams(a.cfg.Simulation, ctx.StringSlice("param"))
	if err != nil {
		return err
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	orchestrator := runner.New(a.logger, repo, runner.ExecLauncher{}, a.toolOptions())
	token, err := orchestrator.StartRun(params, ctx.String("description"))
	if err != nil {
		return err
	}
	a.logger.Info().Str("run", token).Msg("Run started")

	if err := orchestrator.Wait(token); err != nil {
		return fmt.Errorf("run %s did not complete: %w", token, err)
	}
	orchestrator.WaitAll()

	record, err := repo.Get(history.Completed(token))
	if err != nil {
		return fmt.Errorf("run %s did not complete: %w", token, err)
	}

	printRecord(a.out, token, record)
	return nil
}
