// Package kv defines the persisted key-value storage port used for the cart
// state and the offline queue, plus an in-memory adapter.
//
// The durable adapter lives in internal/adapters/out/sqlitekv. Implementations
// may fail (quota, IO); callers are expected to degrade to in-memory state
// rather than propagate storage failures to the user.
package kv

import "sync"

// Store is the single shared mutable resource of this module. It is assumed
// single-writer (one client instance); cross-process locking is out of scope.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Memory is a Store kept entirely in process memory. Used by tests and as
// the fail-open fallback when the durable store cannot be opened.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemory() *Memory {
	return &Memory{m: map[string]string{}}
}

func (s *Memory) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
