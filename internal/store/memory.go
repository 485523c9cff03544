package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store using in-memory storage. All sessions in
// one process share the same table, and every Save notifies subscribers,
// which stands in for the cross-client change signal.
type MemoryStore struct {
	mutex       sync.RWMutex
	data        []byte
	exists      bool
	subscribers map[int]func()
	nextSubID   int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[int]func()),
	}
}

// Load returns the current table blob.
func (s *MemoryStore) Load(ctx context.Context) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.exists {
		return nil, false, nil
	}
	data := make([]byte, len(s.data))
	copy(data, s.data)
	return data, true, nil
}

// Save replaces the table blob and notifies all subscribers.
func (s *MemoryStore) Save(ctx context.Context, data []byte) error {
	s.mutex.Lock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.exists = true

	subscribers := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mutex.Unlock()

	// Callbacks run outside the lock so a subscriber can re-read the
	// table without deadlocking.
	for _, fn := range subscribers {
		fn()
	}
	return nil
}

// Subscribe registers a change callback.
func (s *MemoryStore) Subscribe(fn func()) func() {
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

// Close releases the store.
func (s *MemoryStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.subscribers = make(map[int]func())
	return nil
}
