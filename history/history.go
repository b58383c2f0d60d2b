package history

// This file contains the repository abstraction over stored runs. A run
// lives in a staging area while its process executes and is promoted to a
// completed run by a single rename once the process exits.

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/waterpistol/waterpistol/model"
)

// StagingPrefix marks directories of runs that have not been promoted yet.
const StagingPrefix = "running-"

var (
	// ErrNotFound is returned when a run, its record or its log does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoOutput is returned when promoting a run whose tool produced no output directory.
	ErrNoOutput = errors.New("no output directory")
)

// Key identifies a run in the repository.
type Key struct {
	Token  string
	Staged bool
}

// Completed returns the key of a promoted run.
func Completed(token string) Key {
	return Key{Token: token}
}

// Staged returns the key of a run still in its staging area.
func Staged(token string) Key {
	return Key{Token: token, Staged: true}
}

func (k Key) String() string {
	if k.Staged {
		return StagingPrefix + k.Token
	}
	return k.Token
}

// ValidToken reports whether token can name a completed run: a single
// path element that is not hidden and not a staging area.
func ValidToken(token string) bool {
	return token != "" &&
		!strings.ContainsAny(token, `/\`) &&
		!strings.HasPrefix(token, ".") &&
		!strings.HasPrefix(token, StagingPrefix)
}

// Entry is a run found by List.
type Entry struct {
	Key
	// Creation time of the run, zero if unknown
	Created time.Time
}

// Repository stores runs and their records.
type Repository interface {
	// Create sets up the staging area for a new run and returns the directory
	// the tool should write its results to.
	Create(token string) (string, error)
	// Get reads the record of a run. It returns ErrNotFound if the run or
	// the record is missing.
	Get(key Key) (*model.RunRecord, error)
	// Put replaces the record of an existing run.
	Put(key Key, record *model.RunRecord) error
	// List returns all completed and staged runs.
	List() ([]Entry, error)
	// Rename promotes the output the tool produced in the staging area of
	// token to the completed run. The staging area itself is left in place.
	Rename(token string) error
	// Remove deletes a run and everything in it.
	Remove(key Key) error
	// OpenLog opens the native simulation log of a run.
	OpenLog(key Key) (io.ReadCloser, error)
}
