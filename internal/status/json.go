package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const jsonFileVersion = "1.0"

type jsonFile struct {
	Version string            `json:"version"`
	Modules map[string]Record `json:"modules"`
}

// JSONStore keeps records in memory and rewrites a JSON file on every
// change.
type JSONStore struct {
	fs      afero.Fs
	path    string
	mu      sync.RWMutex
	version string
	records map[string]Record
	closed  bool
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore loads path, starting empty when the file does not exist yet.
func NewJSONStore(fsys afero.Fs, path string) (*JSONStore, error) {
	s := &JSONStore{
		fs:      fsys,
		path:    path,
		version: jsonFileVersion,
		records: make(map[string]Record),
	}

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return err
	}

	var file jsonFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse status file: %w", err)
	}

	if file.Version != "" {
		s.version = file.Version
	}
	s.records = file.Modules
	if s.records == nil {
		s.records = make(map[string]Record)
	}
	return nil
}

// save writes the file atomically. Callers hold s.mu.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(jsonFile{Version: s.version, Modules: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		_ = s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, false, ErrClosed
	}

	record, ok := s.records[id]
	return record, ok, nil
}

func (s *JSONStore) Put(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	previous, had := s.records[record.ID]
	s.records[record.ID] = record
	if err := s.save(); err != nil {
		if had {
			s.records[record.ID] = previous
		} else {
			delete(s.records, record.ID)
		}
		return err
	}
	return nil
}

func (s *JSONStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	previous, had := s.records[id]
	if !had {
		return nil
	}
	delete(s.records, id)
	if err := s.save(); err != nil {
		s.records[id] = previous
		return err
	}
	return nil
}

func (s *JSONStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sortRecords(records)
	return records, nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
