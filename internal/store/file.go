package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileStore implements Store using a single file on disk, the closest
// analog to the browser's local storage. Writes from other processes are
// picked up by polling the file's modification time, so change signals
// arrive with up to one poll interval of delay.
type FileStore struct {
	path         string
	pollInterval time.Duration

	mutex       sync.Mutex
	subscribers map[int]func()
	nextSubID   int
	lastModTime time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewFileStore creates a file-backed store and starts its modification
// watcher. pollInterval controls how often the file is checked for
// writes by other processes.
func NewFileStore(path string, pollInterval time.Duration) *FileStore {
	s := &FileStore{
		path:         path,
		pollInterval: pollInterval,
		subscribers:  make(map[int]func()),
		stop:         make(chan struct{}),
	}

	if stat, err := os.Stat(path); err == nil {
		s.lastModTime = stat.ModTime()
	}
	go s.watch()

	return s
}

// Load reads the table file. A missing file means no table yet.
func (s *FileStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read table file: %w", err)
	}
	return data, true, nil
}

// Save replaces the table file and notifies local subscribers. Writes by
// this process are signalled immediately; the watcher only exists for
// writes by other processes.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write table file: %w", err)
	}

	s.mutex.Lock()
	if stat, err := os.Stat(s.path); err == nil {
		s.lastModTime = stat.ModTime()
	}
	subscribers := s.snapshotSubscribers()
	s.mutex.Unlock()

	for _, fn := range subscribers {
		fn()
	}
	return nil
}

// Subscribe registers a change callback.
func (s *FileStore) Subscribe(fn func()) func() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.mutex.Lock()
		defer s.mutex.Unlock()
		delete(s.subscribers, id)
	}
}

// Close stops the modification watcher.
func (s *FileStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// watch polls the file's modification time and notifies subscribers when
// another process has written the table.
func (s *FileStore) watch() {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			stat, err := os.Stat(s.path)
			if err != nil {
				continue
			}

			s.mutex.Lock()
			changed := stat.ModTime().After(s.lastModTime)
			if changed {
				s.lastModTime = stat.ModTime()
			}
			subscribers := s.snapshotSubscribers()
			s.mutex.Unlock()

			if changed {
				for _, fn := range subscribers {
					fn()
				}
			}
		}
	}
}

// snapshotSubscribers copies the subscriber list; callers must hold the
// mutex.
func (s *FileStore) snapshotSubscribers() []func() {
	subscribers := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	return subscribers
}
