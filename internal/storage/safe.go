package storage

import (
	"errors"

	"arenacli/pkg/logging"
)

// Safe wraps a Store so that storage failures never reach the caller.
// A failed read looks like an absent value; failed writes and deletes are
// logged and reported as false.
type Safe struct {
	store Store
}

func NewSafe(store Store) *Safe {
	return &Safe{store: store}
}

// Get returns the value or "" when absent or unreadable.
func (s *Safe) Get(key string) string {
	v, err := s.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Warn("Storage", "Read of %q failed, treating as absent: %v", key, err)
		}
		return ""
	}
	return v
}

// Set reports whether the value was stored.
func (s *Safe) Set(key, value string) bool {
	if err := s.store.Set(key, value); err != nil {
		logging.Warn("Storage", "Write of %q failed: %v", key, err)
		return false
	}
	return true
}

// Delete reports whether the value is gone.
func (s *Safe) Delete(key string) bool {
	if err := s.store.Delete(key); err != nil {
		logging.Warn("Storage", "Delete of %q failed: %v", key, err)
		return false
	}
	return true
}
