package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store persists config entries
type Store interface {
	Load() ([]*ConfigEntry, error)
	Save(entries []*ConfigEntry) error
}

type entriesFile struct {
	Version int            `yaml:"version"`
	Entries []*ConfigEntry `yaml:"entries"`
}

const entriesFileVersion = 1

// FileStore keeps entries in a YAML file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the entries file. A missing file yields no entries.
func (s *FileStore) Load() ([]*ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entries file: %w", err)
	}

	var f entriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse entries file %s: %w", s.path, err)
	}
	for _, e := range f.Entries {
		e.State = StateNotLoaded
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		if e.Options == nil {
			e.Options = map[string]any{}
		}
	}
	return f.Entries, nil
}

// Save writes all entries, replacing the file atomically
func (s *FileStore) Save(entries []*ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(entriesFile{Version: entriesFileVersion, Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create entries directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write entries file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace entries file: %w", err)
	}
	return nil
}

// MemoryStore keeps entries in memory, for tests and ephemeral runs
type MemoryStore struct {
	mu      sync.Mutex
	entries []*ConfigEntry
	saves   int
}

func (s *MemoryStore) Load() ([]*ConfigEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ConfigEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Save(entries []*ConfigEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]*ConfigEntry, len(entries))
	for i, e := range entries {
		s.entries[i] = e.Clone()
	}
	s.saves++
	return nil
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
