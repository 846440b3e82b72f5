package recording

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a process-local Repository used in tests and
// single-instance deployments.
type MemoryRepository struct {
	mu         sync.RWMutex
	recordings map[string]Recording
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recordings: map[string]Recording{}}
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recordings[id]
	if !ok {
		return nil, recordingError(ErrRecordingNotFound, id)
	}
	copied := rec
	return &copied, nil
}

func (m *MemoryRepository) FindStale(_ context.Context, olderThan time.Time) ([]Recording, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []Recording
	for _, rec := range m.recordings {
		if !rec.Status.Terminal() && !rec.LastUpdatedAt.After(olderThan) {
			stale = append(stale, rec)
		}
	}
	return stale, nil
}

func (m *MemoryRepository) HasActive(_ context.Context, roomID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.recordings {
		if rec.RoomID == roomID && !rec.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) Save(_ context.Context, rec *Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordings[rec.ID] = *rec
	return nil
}

func (m *MemoryRepository) DeleteByRoom(_ context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, rec := range m.recordings {
		if rec.RoomID == roomID {
			delete(m.recordings, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports how many recordings exist. Test helper.
func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recordings)
}
