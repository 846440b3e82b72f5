// Package mutex is the named-lock façade the lifecycle engines use. It maps
// logical resources (scheduled tasks, per-room recording slots, global config
// initialization) onto namespaced keys in the lease store.
package mutex

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/lock"
)

const (
	lockPrefix         = "lock"
	scheduledTaskScope = "scheduled-task"
	recordingScope     = "recording"
	globalConfigKey    = "lock:global-config"
)

// ErrInvalidName rejects empty logical resource names.
var ErrInvalidName = errors.New("mutex: resource name is required")

// Lock is a held named lock.
type Lock struct {
	Name  string
	lease *lock.Lease
}

// Service produces TTL-bounded named locks backed by a lock.Provider.
type Service struct {
	provider lock.Provider
}

// NewService creates a mutex service over provider.
func NewService(provider lock.Provider) (*Service, error) {
	if provider == nil {
		return nil, errors.New("mutex: lock provider is required")
	}
	return &Service{provider: provider}, nil
}

// ScheduledTaskKey names the fleet-wide execution lock of a scheduled task.
func ScheduledTaskKey(taskName string) string {
	return lockPrefix + ":" + scheduledTaskScope + ":" + taskName
}

// RecordingKey names the per-room recording slot lock.
func RecordingKey(roomID string) string {
	return lockPrefix + ":" + recordingScope + ":" + roomID
}

// GlobalConfigKey names the global configuration initialization lock.
func GlobalConfigKey() string {
	return globalConfigKey
}

// Acquire attempts a named lock. It reports (nil, false, nil) when another
// holder is present and never retries internally.
func (s *Service) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, bool, error) {
	if name == "" {
		return nil, false, ErrInvalidName
	}
	lease, acquired, err := s.provider.Acquire(ctx, name, ttl)
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}
	return &Lock{Name: name, lease: lease}, true, nil
}

// AcquireScheduledTask locks fleet-wide execution of a scheduled task.
func (s *Service) AcquireScheduledTask(ctx context.Context, taskName string, ttl time.Duration) (*Lock, bool, error) {
	if taskName == "" {
		return nil, false, ErrInvalidName
	}
	return s.Acquire(ctx, ScheduledTaskKey(taskName), ttl)
}

// AcquireRecording locks the recording slot of a room.
func (s *Service) AcquireRecording(ctx context.Context, roomID string, ttl time.Duration) (*Lock, bool, error) {
	if roomID == "" {
		return nil, false, ErrInvalidName
	}
	return s.Acquire(ctx, RecordingKey(roomID), ttl)
}

// AcquireGlobalConfig locks global configuration initialization.
func (s *Service) AcquireGlobalConfig(ctx context.Context, ttl time.Duration) (*Lock, bool, error) {
	return s.Acquire(ctx, GlobalConfigKey(), ttl)
}

// Release returns the lock to the store. Safe on expired locks.
func (s *Service) Release(ctx context.Context, held *Lock) error {
	if held == nil || held.lease == nil {
		return nil
	}
	return s.provider.Release(ctx, held.lease)
}

// HeldRecordingLocks lists the room ids whose recording slot is currently
// locked, with the remaining lease time of each. Used by the orphaned-lock
// sweep to spot locks whose recording record never materialized.
func (s *Service) HeldRecordingLocks(ctx context.Context) (map[string]time.Duration, error) {
	inspector, ok := s.provider.(lock.Inspector)
	if !ok {
		return nil, errors.New("mutex: provider does not support lease inspection")
	}
	prefix := lockPrefix + ":" + recordingScope + ":"
	held, err := inspector.HeldKeys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	rooms := make(map[string]time.Duration, len(held))
	for _, h := range held {
		rooms[strings.TrimPrefix(h.Key, prefix)] = h.TTL
	}
	return rooms, nil
}

// ForceRelease removes a named lock regardless of holder. Only the orphan
// and staleness sweeps use this, after deciding the owning resource is gone.
func (s *Service) ForceRelease(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidName
	}
	remover, ok := s.provider.(lock.ForceRemover)
	if !ok {
		return errors.New("mutex: provider does not support forced release")
	}
	return remover.ForceRemove(ctx, name)
}
