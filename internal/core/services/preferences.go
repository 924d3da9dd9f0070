// internal/core/services/preferences.go
package services

import (
	"context"
	"sync"

	"github.com/ammerola/finops-console/internal/core/ports"
)

// MemoryPreferenceStore keeps preferences for the lifetime of the process.
// It is the default when neither Redis nor a local database is configured.
type MemoryPreferenceStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ ports.PreferenceStore = (*MemoryPreferenceStore)(nil)

// NewMemoryPreferenceStore creates an empty store
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: make(map[string]string)}
}

// Get returns a stored preference or ports.ErrPreferenceNotSet
func (s *MemoryPreferenceStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ports.ErrPreferenceNotSet
	}
	return v, nil
}

// Set writes a preference
func (s *MemoryPreferenceStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
