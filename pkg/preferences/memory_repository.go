package preferences

import (
	"context"
	"errors"
	"sync"
)

// MemoryRepository is a process-local Repository used in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	prefs *GlobalPreferences
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Get(context.Context) (*GlobalPreferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.prefs == nil {
		return nil, ErrNotInitialized
	}
	copied := *m.prefs
	return &copied, nil
}

func (m *MemoryRepository) Insert(_ context.Context, prefs *GlobalPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs != nil {
		return errors.New("global preferences already exist")
	}
	copied := *prefs
	m.prefs = &copied
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, prefs *GlobalPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return ErrNotInitialized
	}
	copied := *prefs
	m.prefs = &copied
	return nil
}
