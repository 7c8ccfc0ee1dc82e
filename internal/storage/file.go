package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"arenacli/pkg/logging"
)

// DefaultFileName is the file the FileStore keeps its values in.
const DefaultFileName = "storage.json"

// errCorrupt marks a storage file that exists but does not parse.
var errCorrupt = errors.New("storage file is corrupt")

// FileStore persists values as a single JSON object on disk.
//
// SECURITY: the file holds the session token. It is written with 0600
// permissions inside a 0700 directory, and values are never logged.
type FileStore struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewFileStore creates the storage directory if needed and returns a store
// backed by dir/storage.json.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{
		dir:  dir,
		path: filepath.Join(dir, DefaultFileName),
	}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return s.writeLocked(values)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.writeLocked(values)
}

func (s *FileStore) readLocked() (map[string]string, error) {
	// #nosec G304 -- path is derived from the configured storage directory
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return values, nil
}

// readForWriteLocked is readLocked for Set and Delete. A corrupt file is
// moved aside to storage.json.corrupt and the write starts from an empty
// document, so one bad write never locks the store for good.
func (s *FileStore) readForWriteLocked() (map[string]string, error) {
	values, err := s.readLocked()
	if !errors.Is(err, errCorrupt) {
		return values, err
	}
	logging.Warn("Storage", "Discarding unreadable %s: %v", s.path, err)
	if err := os.Rename(s.path, s.path+".corrupt"); err != nil {
		logging.Warn("Storage", "Could not keep a copy of the corrupt storage file: %v", err)
	}
	return map[string]string{}, nil
}

// writeLocked replaces the file atomically so a concurrent reader in another
// process never sees a half written document.
func (s *FileStore) writeLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set storage permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}
