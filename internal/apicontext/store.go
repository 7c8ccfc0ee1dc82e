package apicontext

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"arenacli/pkg/logging"
)

const fileName = "contexts.yaml"

// Store reads and writes contexts.yaml in a configuration directory.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// NewStore returns a Store for dir/contexts.yaml.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path is the location of contexts.yaml.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

// StateDir is where the session for context name is stored, below the
// configured state directory.
func StateDir(base, name string) string {
	return filepath.Join(base, "contexts", name)
}

// Load reads the file. A missing file is an empty configuration.
func (s *Store) Load() (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*File, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read contexts file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path(), err)
	}
	return &f, nil
}

func (s *Store) saveLocked(f *File) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal contexts: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".contexts-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write contexts file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write contexts file: %w", err)
	}
	return os.Rename(tmpName, s.Path())
}

// update loads the file, applies fn and saves the result when fn succeeds.
func (s *Store) update(fn func(f *File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.saveLocked(f)
}

// Add creates a context. The name must be new.
func (s *Store) Add(c Context) error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if err := ValidateBaseURL(c.BaseURL); err != nil {
		return err
	}
	return s.update(func(f *File) error {
		if f.Has(c.Name) {
			return fmt.Errorf("context %q already exists", c.Name)
		}
		f.Put(c)
		logging.Debug("Contexts", "Added context %s -> %s", c.Name, c.BaseURL)
		return nil
	})
}

// Update changes the base URL of an existing context. Nil settings keep the
// current ones.
func (s *Store) Update(name, baseURL string, settings *Settings) error {
	if err := ValidateBaseURL(baseURL); err != nil {
		return err
	}
	return s.update(func(f *File) error {
		c := f.Get(name)
		if c == nil {
			return &NotFoundError{Name: name}
		}
		c.BaseURL = baseURL
		if settings != nil {
			c.Settings = settings
		}
		return nil
	})
}

// Use makes name the current context.
func (s *Store) Use(name string) error {
	return s.update(func(f *File) error {
		if !f.Has(name) {
			return &NotFoundError{Name: name}
		}
		f.CurrentContext = name
		return nil
	})
}

// Delete removes a context.
func (s *Store) Delete(name string) error {
	return s.update(func(f *File) error {
		if !f.Remove(name) {
			return &NotFoundError{Name: name}
		}
		return nil
	})
}

// Rename moves a context to a new name, keeping it current if it was.
// Sessions stored under the old name are not carried over.
func (s *Store) Rename(oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	return s.update(func(f *File) error {
		c := f.Get(oldName)
		if c == nil {
			return &NotFoundError{Name: oldName}
		}
		if oldName == newName {
			return nil
		}
		if f.Has(newName) {
			return fmt.Errorf("context %q already exists", newName)
		}
		wasCurrent := f.CurrentContext == oldName
		renamed := *c
		renamed.Name = newName
		f.Remove(oldName)
		f.Put(renamed)
		if wasCurrent {
			f.CurrentContext = newName
		}
		return nil
	})
}

// Names lists context names, for shell completion.
func (s *Store) Names() ([]string, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(f.Contexts))
	for i, c := range f.Contexts {
		names[i] = c.Name
	}
	return names, nil
}

// Resolve picks the context for one invocation: explicit, then
// ARENA_CONTEXT, then current-context. It returns nil when none is set.
// A name that is set but unknown is an error.
func (s *Store) Resolve(explicit string) (*Context, error) {
	name := strings.TrimSpace(explicit)
	source := "--context"
	if name == "" {
		name = strings.TrimSpace(os.Getenv(EnvContext))
		source = EnvContext
	}

	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = f.CurrentContext
		source = "current-context"
	}
	if name == "" {
		return nil, nil
	}

	c := f.Get(name)
	if c == nil {
		return nil, &NotFoundError{Name: name}
	}
	logging.Debug("Contexts", "Using context %s from %s", name, source)
	return c, nil
}
