package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the current configuration snapshot. Readers never block;
// Publish is meant to be called from a single goroutine.
type Store struct {
	current atomic.Pointer[Config]
	mu      sync.Mutex
}

func NewStore(initial *Config) *Store {
	s := &Store{}
	if initial != nil {
		s.Publish(initial)
	}
	return s
}

// Current returns the latest published snapshot, or nil before the first
// Publish.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Publish stores a copy of cfg stamped with the next version and returns it.
func (s *Store) Publish(cfg *Config) *Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version uint64 = 1
	if prev := s.current.Load(); prev != nil {
		version = prev.Version + 1
	}
	next := cfg.withVersion(version)
	s.current.Store(next)
	return next
}
