package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/djherbis/times"
	"github.com/rs/zerolog"

	"github.com/waterpistol/waterpistol/model"
	"github.com/waterpistol/waterpistol/simlog"
)

var _ Repository = (*FS)(nil)

// FS is a Repository backed by a results directory. Completed runs are
// stored in <dir>/<token>, staged runs in <dir>/running-<token>.
type FS struct {
	logger zerolog.Logger
	dir    string
}

// NewFS returns a repository rooted at dir, creating it if necessary.
func NewFS(logger zerolog.Logger, dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving results dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &FS{logger: logger, dir: abs}, nil
}

// Dir returns the results directory.
func (f *FS) Dir() string {
	return f.dir
}

// Path returns the directory of a run.
func (f *FS) Path(key Key) string {
	return filepath.Join(f.dir, key.String())
}

func (f *FS) Create(token string) (string, error) {
	dir := f.Path(Staged(token))
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

func (f *FS) Get(key Key) (*model.RunRecord, error) {
	recordPath := filepath.Join(f.Path(key), model.RecordFile)
	data, err := os.ReadFile(recordPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("record of run %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var record model.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", recordPath, err)
	}
	return &record, nil
}

// Put writes the record to a temporary file next to the final one and
// renames it into place, so readers never observe a partial record.
func (f *FS) Put(key Key, record *model.RunRecord) error {
	dir := f.Path(key)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("run %s: %w", key, ErrNotFound)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+model.RecordFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary record: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// no-op once renamed
		os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, model.RecordFile)); err != nil {
		return fmt.Errorf("failed to replace record: %w", err)
	}
	return nil
}

func (f *FS) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, d := range dirEntries {
		name := d.Name()
		if !d.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		key := Completed(name)
		if token, ok := strings.CutPrefix(name, StagingPrefix); ok {
			key = Staged(token)
		}

		// the directory may have been promoted or removed since ReadDir
		ts, err := times.Stat(filepath.Join(f.dir, name))
		if err != nil {
			f.logger.Debug().Err(err).Str("dir", name).Msg("Skipping vanished run directory")
			continue
		}

		entry := Entry{Key: key}
		if ts.HasBirthTime() {
			entry.Created = ts.BirthTime()
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (f *FS) Rename(token string) error {
	staging := f.Path(Staged(token))
	output, err := f.outputDir(staging)
	if err != nil {
		return err
	}

	target := f.Path(Completed(token))
	if err := os.Rename(output, target); err != nil {
		return fmt.Errorf("failed to promote %s: %w", output, err)
	}

	f.logger.Debug().Str("from", output).Str("to", target).Msg("Promoted run")
	return nil
}

func (f *FS) Remove(key Key) error {
	if err := os.RemoveAll(f.Path(key)); err != nil {
		return fmt.Errorf("failed to remove run %s: %w", key, err)
	}
	return nil
}

func (f *FS) OpenLog(key Key) (io.ReadCloser, error) {
	dir := f.Path(key)
	if key.Staged {
		output, err := f.outputDir(dir)
		if errors.Is(err, ErrNoOutput) {
			return nil, fmt.Errorf("log of run %s: %w", key, ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		dir = output
	}

	file, err := os.Open(filepath.Join(dir, simlog.LogFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("log of run %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return file, nil
}

// outputDir finds the directory the tool created inside a staging area.
func (f *FS) outputDir(staging string) (string, error) {
	dirEntries, err := os.ReadDir(staging)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("staging directory %s: %w", staging, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read staging directory: %w", err)
	}

	var dirs []string
	for _, d := range dirEntries {
		if d.IsDir() {
			dirs = append(dirs, d.Name())
		}
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("staging directory %s: %w", staging, ErrNoOutput)
	}
	sort.Strings(dirs)
	if len(dirs) > 1 {
		f.logger.Warn().Strs("dirs", dirs).Str("staging", staging).Msg("Multiple output directories, using the first")
	}

	return filepath.Join(staging, dirs[0]), nil
}
