// Package runner launches simulation runs and supervises them until their
// results are promoted into the run history.
package runner

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
	"github.com/waterpistol/waterpistol/simlog"
)

// Handle tracks a single supervised run.
type Handle struct {
	Token   string
	Started time.Time

	done     chan struct{}
	exitCode int
	err      error
}

// Done is closed once the run has been promoted or given up on.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the promotion error of a finished run. Only valid after Done
// is closed.
func (h *Handle) Err() error {
	return h.err
}

// ExitCode returns the tool exit code of a finished run, -1 if the tool
// could not be started. Only valid after Done is closed.
func (h *Handle) ExitCode() int {
	return h.exitCode
}

// Orchestrator starts runs and owns their supervision goroutines.
type Orchestrator struct {
	logger   zerolog.Logger
	repo     history.Repository
	launcher Launcher
	tool     ToolOptions

	newToken func() string
	now      func() time.Time

	mu      sync.Mutex
	handles map[string]*Handle
	wg      sync.WaitGroup
}

// New creates an Orchestrator storing runs in repo and executing the tool
// described by tool through launcher.
func New(logger zerolog.Logger, repo history.Repository, launcher Launcher, tool ToolOptions) *Orchestrator {
	return &Orchestrator{
		logger:   logger,
		repo:     repo,
		launcher: launcher,
		tool:     tool,
		newToken: uuid.NewString,
		now:      time.Now,
		handles:  map[string]*Handle{},
	}
}

// StartRun prepares the staging area of a new run, records it as running
// and launches the tool in the background. It returns the run token.
func (o *Orchestrator) StartRun(params map[string]string, description string) (string, error) {
	params = maps.Clone(params)
	if params == nil {
		params = map[string]string{}
	}

	token := o.newToken()
	dir, err := o.repo.Create(token)
	if err != nil {
		return "", fmt.Errorf("failed to create staging area: %w", err)
	}

	if err := o.repo.Put(history.Staged(token), model.NewRunningRecord(params)); err != nil {
		if rerr := o.repo.Remove(history.Staged(token)); rerr != nil {
			o.logger.Warn().Err(rerr).Str("run", token).Msg("Failed to clean up staging area")
		}
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	h := &Handle{
		Token:   token,
		Started: o.now(),
		done:    make(chan struct{}),
	}

	o.mu.Lock()
	o.handles[token] = h
	o.mu.Unlock()

	cmd := BuildCommand(o.tool, dir, description, params)
	o.wg.Add(1)
	go o.supervise(h, cmd, params)

	return token, nil
}

func (o *Orchestrator) supervise(h *Handle, cmd Command, params map[string]string) {
	defer o.wg.Done()

	logger := o.logger.With().Str("run", h.Token).Logger()
	logger.Info().Str("command", cmd.String()).Msg("Starting simulation")

	exitCode, err := o.launcher.Launch(cmd, logger)
	switch {
	case err != nil:
		logger.Error().Err(err).Msg("Simulation tool failed to start")
	case exitCode != 0:
		logger.Warn().Int("exit_code", exitCode).Msg("Simulation tool exited with failure")
	default:
		logger.Info().Dur("elapsed", o.now().Sub(h.Started)).Msg("Simulation finished")
	}

	err = o.promote(h.Token, params)
	switch {
	case errors.Is(err, history.ErrNoOutput):
		logger.Error().Err(err).Msg("Simulation produced no results, run stays staged")
	case err != nil:
		logger.Error().Err(err).Msg("Failed to promote run")
	default:
		logger.Info().Msg("Run results available")
	}

	o.mu.Lock()
	h.exitCode = exitCode
	h.err = err
	delete(o.handles, h.Token)
	o.mu.Unlock()
	close(h.done)
}

// promote moves the tool output into the run history and records the
// aggregated report. A report that cannot be built still leaves a
// completed run behind, with an Unknown record.
func (o *Orchestrator) promote(token string, params map[string]string) error {
	if err := o.repo.Rename(token); err != nil {
		return fmt.Errorf("promoting run %s: %w", token, err)
	}

	key := history.Completed(token)
	record, reportErr := o.report(key, params)

	if err := o.repo.Put(key, record); err != nil {
		return fmt.Errorf("recording run %s: %w", token, err)
	}
	if err := o.repo.Remove(history.Staged(token)); err != nil {
		return fmt.Errorf("removing staging area of %s: %w", token, err)
	}
	return reportErr
}

func (o *Orchestrator) report(key history.Key, params map[string]string) (*model.RunRecord, error) {
	unknown := model.DefaultRecord()
	unknown.CustomParams = params

	rc, err := o.repo.OpenLog(key)
	if err != nil {
		return unknown, fmt.Errorf("opening log of %s: %w", key.Token, err)
	}
	defer rc.Close()

	report, err := simlog.ParseReport(rc)
	if err != nil {
		return unknown, fmt.Errorf("parsing log of %s: %w", key.Token, err)
	}
	return model.NewDoneRecord(o.now(), params, report), nil
}

// Active reports whether a process is currently supervised for token.
func (o *Orchestrator) Active(token string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.handles[token]
	return ok
}

// Handle returns the handle of an in-flight run, or nil.
func (o *Orchestrator) Handle(token string) *Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handles[token]
}

// Wait blocks until the run identified by token has finished and returns
// its promotion error. Unknown or already finished runs return nil.
func (o *Orchestrator) Wait(token string) error {
	h := o.Handle(token)
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// WaitAll blocks until every in-flight run has finished.
func (o *Orchestrator) WaitAll() {
	o.wg.Wait()
}
