package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ProjectFile is the project reference file name inside a project directory.
const ProjectFile = "cameio.project"

// FileStore is a Store backed by a JSON file.
type FileStore struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// OpenFile loads path if it exists. A missing or unreadable file yields an
// empty store that Save will create.
func OpenFile(path string) *FileStore {
	s := &FileStore{path: path, data: make(map[string]any)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err == nil && data != nil {
		s.data = data
	}
	return s
}

// OpenPrivate opens <privateDir>/<name>. Names without an extension get ".data".
func OpenPrivate(privateDir, name string) *FileStore {
	if !strings.Contains(name, ".") {
		name += ".data"
	}
	return OpenFile(filepath.Join(privateDir, name))
}

// OpenProject opens the project reference in dir.
func OpenProject(dir string) *FileStore {
	return OpenFile(filepath.Join(dir, ProjectFile))
}

// RequireProject opens the project reference in dir and fails when the
// directory is not a cameio project.
func RequireProject(dir string) (*FileStore, error) {
	path := filepath.Join(dir, ProjectFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s %w: run this command from the root of a cameio project", ProjectFile, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return OpenFile(path), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	return v, ok
}

func (s *FileStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

func (s *FileStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
}

func (s *FileStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Save writes the whole record as indented JSON, creating the parent directory.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.path), err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("unable to save cameio data %s: %w", s.path, err)
	}
	return nil
}
