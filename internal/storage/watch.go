package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"arenacli/pkg/logging"
)

// DefaultDebounceInterval coalesces the burst of events a single atomic
// replace produces (create temp, write, rename).
const DefaultDebounceInterval = 100 * time.Millisecond

// Watch calls onChange whenever the store's file is changed by anyone,
// this process included. It returns once the watcher is set up; watching
// stops when ctx is done.
func (s *FileStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// The directory is watched rather than the file, since atomic replaces
	// swap the inode out from under a file watch.
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	target := filepath.Base(s.path)
	var (
		debounceMu sync.Mutex
		debounce   *time.Timer
	)
	trigger := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(DefaultDebounceInterval, func() {
			if ctx.Err() == nil {
				onChange()
			}
		})
	}

	eventsCh := watcher.Events
	errorsCh := watcher.Errors

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				debounceMu.Lock()
				if debounce != nil {
					debounce.Stop()
				}
				debounceMu.Unlock()
				return
			case event, ok := <-eventsCh:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logging.Debug("Storage", "Storage file changed: %s", event.Op)
				trigger()
			case err, ok := <-errorsCh:
				if !ok {
					return
				}
				logging.Error("Storage", err, "fsnotify error")
			}
		}
	}()

	logging.Debug("Storage", "Watching %s for external changes", s.dir)
	return nil
}
