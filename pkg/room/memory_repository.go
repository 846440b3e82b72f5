package room

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is a process-local Repository used in tests and
// single-instance deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rooms: map[string]Room{}}
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, roomError(ErrRoomNotFound, id)
	}
	copied := r
	return &copied, nil
}

func (m *MemoryRepository) FindExpired(_ context.Context, now time.Time) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expired []Room
	for _, r := range m.rooms {
		if r.AutoDeletionDate != nil && !r.AutoDeletionDate.After(now) {
			expired = append(expired, r)
		}
	}
	return expired, nil
}

func (m *MemoryRepository) Save(_ context.Context, r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = *r
	return nil
}

func (m *MemoryRepository) SetMarkedForDeletion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return roomError(ErrRoomNotFound, id)
	}
	r.MarkedForDeletion = true
	m.rooms[id] = r
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return roomError(ErrRoomNotFound, id)
	}
	delete(m.rooms, id)
	return nil
}

// Count reports how many rooms exist. Test helper.
func (m *MemoryRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
