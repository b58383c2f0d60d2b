package model

import "time"

// RecordFile is the name of the sidecar holding a RunRecord inside every run directory.
const RecordFile = "testrun-data.json"

// Status represents the lifecycle state of a run
type Status string

const (
	StatusUnknown Status = "Unknown"
	StatusRunning Status = "Running"
	StatusDone    Status = "Done"
)

// Visibility controls whether a run shows up in listings
type Visibility string

const (
	VisibilityVisible Visibility = "Visible"
	VisibilityHidden  Visibility = "Hidden"
)

// ParseVisibility converts a user supplied string into a Visibility.
func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(s) {
	case VisibilityVisible, VisibilityHidden:
		return Visibility(s), true
	}
	return "", false
}

// RunRecord is the persisted state of a single run.
// Statistics is set if and only if Status is StatusDone.
type RunRecord struct {
	// Time at which the statistics became available, nil while running
	Timestamp *time.Time `json:"timestamp"`
	// Lifecycle state
	Status Status `json:"status"`
	// Parameters the run was launched with
	CustomParams map[string]string `json:"custom_params"`
	// Listing visibility, an empty value means visible
	Visibility Visibility `json:"visibility_status,omitempty"`
	// Aggregated report, only present once the run is done
	Statistics *Report `json:"statistics"`
}

// NewRunningRecord returns the record written when a run is started.
func NewRunningRecord(params map[string]string) *RunRecord {
	return &RunRecord{
		Status:       StatusRunning,
		CustomParams: params,
		Visibility:   VisibilityVisible,
	}
}

// NewDoneRecord returns the record written once a run's report is available.
func NewDoneRecord(at time.Time, params map[string]string, report *Report) *RunRecord {
	at = at.UTC()
	return &RunRecord{
		Timestamp:    &at,
		Status:       StatusDone,
		CustomParams: params,
		Visibility:   VisibilityVisible,
		Statistics:   report,
	}
}

// DefaultRecord is used when nothing can be recovered for a run directory.
func DefaultRecord() *RunRecord {
	return &RunRecord{
		Status:       StatusUnknown,
		CustomParams: map[string]string{},
		Visibility:   VisibilityVisible,
	}
}

// Hidden reports whether the run should be left out of listings.
func (r *RunRecord) Hidden() bool {
	return r.Visibility == VisibilityHidden
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	// Run token
	Name string `json:"name"`
	// Creation time of the run directory, nil for runs still in staging
	CreationDate *time.Time `json:"creation_date"`
	// Number of started users seen so far, only set for runs still in staging
	Progress *uint64 `json:"progress"`
	// Whether a process is currently supervised for this run
	Active bool `json:"active"`
	// Persisted record
	Data *RunRecord `json:"data"`
}
