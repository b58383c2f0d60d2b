// Package registry lists the runs of the run history for display and
// manages their visibility.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
	"github.com/waterpistol/waterpistol/simlog"
)

// UnknownCreation is reported for runs whose creation time is not
// available from the filesystem.
var UnknownCreation = time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC)

// Tracker reports whether a process is currently supervised for a run.
type Tracker interface {
	Active(token string) bool
}

// Registry reads the run history.
type Registry struct {
	logger  zerolog.Logger
	repo    history.Repository
	tracker Tracker
	now     func() time.Time
}

// New creates a Registry over repo. tracker may be nil, in which case no
// staged run is reported as active.
func New(logger zerolog.Logger, repo history.Repository, tracker Tracker) *Registry {
	return &Registry{
		logger:  logger,
		repo:    repo,
		tracker: tracker,
		now:     time.Now,
	}
}

// ListRuns returns the visible runs, newest first, in-flight runs ahead of
// completed ones. Completed runs with a missing or corrupt record get one
// rebuilt from their log.
func (r *Registry) ListRuns() ([]model.RunSummary, error) {
	entries, err := r.repo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var completed, staged []model.RunSummary
	inStaging := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Staged {
			continue
		}
		inStaging[entry.Token] = true
		if summary, ok := r.stagedSummary(entry); ok {
			staged = append(staged, summary)
		}
	}

	for _, entry := range entries {
		if entry.Staged {
			continue
		}

		// A supervised run is still being promoted: its staged row stands in
		// for it and its record belongs to the orchestrator.
		promoting := r.active(entry.Token)
		if promoting && inStaging[entry.Token] {
			continue
		}

		summary, ok := r.completedSummary(entry, promoting)
		if !ok || summary.Data.Hidden() {
			continue
		}
		completed = append(completed, summary)
	}

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CreationDate.Before(*completed[j].CreationDate)
	})

	runs := append(completed, staged...)
	slices.Reverse(runs)
	if runs == nil {
		runs = []model.RunSummary{}
	}
	return runs, nil
}

func (r *Registry) completedSummary(entry history.Entry, promoting bool) (model.RunSummary, bool) {
	logger := r.logger.With().Str("run", entry.Token).Logger()

	record, err := r.repo.Get(entry.Key)
	if err != nil && promoting {
		logger.Debug().Err(err).Msg("Skipping run being promoted")
		return model.RunSummary{}, false
	}
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			logger.Debug().Msg("Run has no record, rebuilding it")
		} else {
			logger.Warn().Err(err).Msg("Run record is unreadable, rebuilding it")
		}

		record, err = r.heal(entry.Key, logger)
		if err != nil {
			logger.Debug().Err(err).Msg("Run vanished while listing")
			return model.RunSummary{}, false
		}
	}

	created := entry.Created
	if created.IsZero() {
		created = UnknownCreation
	}

	return model.RunSummary{
		Name:         entry.Token,
		CreationDate: &created,
		Data:         record,
	}, true
}

// heal derives a record from the run log, falling back to a default record
// when the log is unusable, and persists it.
func (r *Registry) heal(key history.Key, logger zerolog.Logger) (*model.RunRecord, error) {
	record := model.DefaultRecord()
	if report, err := r.parseLog(key); err != nil {
		logger.Warn().Err(err).Msg("Run log is unusable, using a default record")
	} else {
		record = model.NewDoneRecord(r.now(), map[string]string{}, report)
	}

	if err := r.repo.Put(key, record); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("Failed to persist rebuilt record")
	}
	return record, nil
}

func (r *Registry) parseLog(key history.Key) (*model.Report, error) {
	rc, err := r.repo.OpenLog(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return simlog.ParseReport(rc)
}

func (r *Registry) stagedSummary(entry history.Entry) (model.RunSummary, bool) {
	record, err := r.repo.Get(entry.Key)
	if err != nil {
		r.logger.Debug().Err(err).Str("run", entry.Token).Msg("Skipping staged run without record")
		return model.RunSummary{}, false
	}

	return model.RunSummary{
		Name:     entry.Token,
		Progress: r.progress(entry.Key),
		Active:   r.active(entry.Token),
		Data:     record,
	}, true
}

func (r *Registry) active(token string) bool {
	return r.tracker != nil && r.tracker.Active(token)
}

// progress counts the users started so far, or nil when the log cannot be
// read yet.
func (r *Registry) progress(key history.Key) *uint64 {
	rc, err := r.repo.OpenLog(key)
	if err != nil {
		return nil
	}
	defer rc.Close()

	n, err := simlog.CountStartedUsers(rc)
	if err != nil {
		return nil
	}
	return &n
}

// SetVisibility changes the visibility of a completed run.
func (r *Registry) SetVisibility(token string, visibility model.Visibility) error {
	key := history.Completed(token)
	record, err := r.repo.Get(key)
	if err != nil {
		return err
	}

	record.Visibility = visibility
	if err := r.repo.Put(key, record); err != nil {
		return fmt.Errorf("failed to update visibility of %s: %w", token, err)
	}

	r.logger.Info().Str("run", token).Str("visibility", string(visibility)).Msg("Run visibility changed")
	return nil
}
