package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/config"
	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/runner"
)

const AppName = "waterpistol"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	out    io.Writer
	cfg    *config.Config
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		out:    os.Stdout,
	}
	app.cli = &cli.App{
		Name:  AppName,
		Usage: "Run Gatling simulations and browse their results",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose (debug) logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file",
				Value:   config.DefaultFile,
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the test suite (overrides data_dir)",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return app.loadConfig(ctx)
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "serve",
		Usage:  "Serve the dashboard API and start runs on request",
		Action: app.serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on (overrides server.addr)",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Run the configured simulation and wait for its report",
		Action: app.run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "Run description passed to the simulation",
			},
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "Simulation parameter as name=value, may be repeated",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List runs, newest first",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "report",
		Usage:     "Print the report of a run or of a simulation.log file",
		ArgsUsage: "[ID|INDEX|FILE]",
		Action:    app.report,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "hide",
		Usage:     "Hide a run from listings",
		ArgsUsage: "ID",
		Action:    app.hide,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a previously hidden run again",
		ArgsUsage: "ID",
		Action:    app.show,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "profile",
		Usage:           "Explore request latencies of a run with pprof",
		ArgsUsage:       "[ID|INDEX] [-- pprof flags]",
		Action:          app.profile,
		SkipFlagParsing: true,
		Description: `Convert the requests of a run into a pprof profile and open it with go tool pprof.

Arguments:
  0           Profile the last run (default)
  -1          Profile the 2nd last run
  <id>        Profile the run matching the ID prefix

Examples:
  waterpistol profile                  # Last run, interactive pprof
  waterpistol profile -1 -http=:8081   # 2nd last run in the pprof web UI
  waterpistol profile 3f1c -- -top     # Run 3f1c..., top requests by latency`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if len(commit) >= 8 && commit != "none" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

func (a *App) loadConfig(ctx *cli.Context) error {
	path := ctx.String("config")
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !ctx.IsSet("config") {
		a.logger.Debug().Str("path", path).Msg("No configuration file, using defaults")
		cfg = config.Default()
	} else if err != nil {
		return err
	}

	if ctx.IsSet("data-dir") {
		cfg.DataDir = ctx.String("data-dir")
	}
	a.cfg = cfg
	return nil
}

func (a *App) repository() (*history.FS, error) {
	repo, err := history.NewFS(a.logger, a.cfg.ResultsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open results directory: %w", err)
	}
	return repo, nil
}

func (a *App) toolOptions() runner.ToolOptions {
	return runner.ToolOptions{
		Command:         a.cfg.Tool.Command,
		Subcommand:      a.cfg.Tool.Subcommand,
		Dir:             a.cfg.ToolDir(),
		SimulationClass: a.cfg.Simulation.SimulationClass,
		Params:          a.cfg.Simulation.Names(),
	}
}
