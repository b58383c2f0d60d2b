package cli

// This file contains the serve command running the dashboard API.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/registry"
	"github.com/waterpistol/waterpistol/runner"
	"github.com/waterpistol/waterpistol/server"
)

const shutdownTimeout = 10 * time.Second

func (a *App) serve(ctx *cli.Context) error {
	addr := a.cfg.Server.Addr
	if ctx.IsSet("addr") {
		addr = ctx.String("addr")
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	if a.cfg.Simulation.SimulationClass == "" {
		a.logger.Warn().Msg("No simulation_class configured, started runs will fail")
	}

	orchestrator := runner.New(a.logger, repo, runner.ExecLauncher{}, a.toolOptions())
	runs := registry.New(a.logger, repo, orchestrator)
	h := server.NewHandler(a.logger, runs, orchestrator, a.cfg.Simulation, repo.Dir())
	e := server.New(a.logger, h)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.logger.Info().
		Str("addr", addr).
		Str("results", repo.Dir()).
		Str("testsuite", a.cfg.ToolDir()).
		Msg("Listening")

	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCtx.Done():
	}

	a.logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to shutdown server gracefully")
	}

	a.logger.Info().Msg("Waiting for running simulations to finish")
	orchestrator.WaitAll()

	a.logger.Info().Msg("Stopped")
	return nil
}
