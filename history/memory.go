package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/waterpistol/waterpistol/model"
)

type memRun struct {
	created time.Time
	record  []byte
	// log of a completed run
	log []byte
	// output directories written by the tool into a staging area
	outputs map[string][]byte
}

var _ Repository = (*Memory)(nil)

// Memory is an in-memory Repository. Records are kept JSON encoded so that
// corrupted records can be simulated.
type Memory struct {
	mu   sync.Mutex
	now  func() time.Time
	runs map[Key]*memRun
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		now:  time.Now,
		runs: make(map[Key]*memRun),
	}
}

func (m *Memory) Create(token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := Staged(token)
	if _, exists := m.runs[key]; exists {
		return "", fmt.Errorf("staging area of %s already exists", token)
	}
	m.runs[key] = &memRun{created: m.now(), outputs: map[string][]byte{}}
	return path.Join("/memory", key.String()), nil
}

func (m *Memory) Get(key Key) (*model.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[key]
	if !ok || run.record == nil {
		return nil, fmt.Errorf("record of run %s: %w", key, ErrNotFound)
	}

	var record model.RunRecord
	if err := json.Unmarshal(run.record, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record of %s: %w", key, err)
	}
	return &record, nil
}

func (m *Memory) Put(key Key, record *model.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return m.SetRaw(key, data)
}

// SetRaw stores data as the record of a run without validating it.
func (m *Memory) SetRaw(key Key, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[key]
	if !ok {
		return fmt.Errorf("run %s: %w", key, ErrNotFound)
	}
	run.record = append([]byte(nil), data...)
	return nil
}

func (m *Memory) List() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, 0, len(m.runs))
	for key, run := range m.runs {
		entries = append(entries, Entry{Key: key, Created: run.created})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.String() < entries[j].Key.String()
	})
	return entries, nil
}

func (m *Memory) Rename(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged, ok := m.runs[Staged(token)]
	if !ok {
		return fmt.Errorf("staging area of %s: %w", token, ErrNotFound)
	}
	if len(staged.outputs) == 0 {
		return fmt.Errorf("staging area of %s: %w", token, ErrNoOutput)
	}
	if _, exists := m.runs[Completed(token)]; exists {
		return fmt.Errorf("run %s already exists", token)
	}

	dir := firstOutput(staged.outputs)
	m.runs[Completed(token)] = &memRun{created: m.now(), log: staged.outputs[dir]}
	delete(staged.outputs, dir)
	return nil
}

func (m *Memory) Remove(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.runs, key)
	return nil
}

func (m *Memory) OpenLog(key Key) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[key]
	if !ok {
		return nil, fmt.Errorf("log of run %s: %w", key, ErrNotFound)
	}

	data := run.log
	if key.Staged {
		if len(run.outputs) == 0 {
			return nil, fmt.Errorf("log of run %s: %w", key, ErrNotFound)
		}
		data = run.outputs[firstOutput(run.outputs)]
	}
	if data == nil {
		return nil, fmt.Errorf("log of run %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), data...))), nil
}

// WriteOutput stores log as the simulation log of output directory dir in
// the staging area of token, the way the tool does while it runs.
func (m *Memory) WriteOutput(token, dir string, log []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[Staged(token)]
	if !ok {
		return fmt.Errorf("staging area of %s: %w", token, ErrNotFound)
	}
	run.outputs[dir] = append([]byte(nil), log...)
	return nil
}

// AddCompleted stores a completed run with the given log and no record.
// A nil log means the run directory holds no log at all.
func (m *Memory) AddCompleted(token string, created time.Time, log []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[Completed(token)] = &memRun{created: created, log: log}
}

func firstOutput(outputs map[string][]byte) string {
	dirs := make([]string, 0, len(outputs))
	for dir := range outputs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs[0]
}
