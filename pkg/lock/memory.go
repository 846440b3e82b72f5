package lock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token    string
	expireAt time.Time
	timer    *time.Timer
}

// MemoryProvider implements Provider with process-local state. It keeps the
// same acquire/release semantics as the Redis provider, including TTL expiry,
// and backs tests and single-instance deployments.
type MemoryProvider struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	closed  bool
}

// NewMemoryProvider creates an empty in-process lease store.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: map[string]*memoryEntry{}}
}

// Acquire grants the lease when the key is absent or its previous lease
// already expired.
func (p *MemoryProvider) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, lockError(ErrInvalidArgument, "lock key is required")
	}
	if ttl <= 0 {
		return nil, false, lockError(ErrInvalidArgument, "ttl must be > 0")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false, lockError(ErrRetryable, "provider closed")
	}

	now := time.Now().UTC()
	if existing, ok := p.entries[key]; ok && existing.expireAt.After(now) {
		return nil, false, nil
	}

	token := uuid.NewString()
	entry := &memoryEntry{token: token, expireAt: now.Add(ttl)}
	entry.timer = time.AfterFunc(ttl, func() { p.expire(key, token) })
	if existing, ok := p.entries[key]; ok && existing.timer != nil {
		existing.timer.Stop()
	}
	p.entries[key] = entry

	return &Lease{Key: key, Token: token, ExpireAt: entry.expireAt}, true, nil
}

// Release removes the entry only while the token still matches.
func (p *MemoryProvider) Release(_ context.Context, lease *Lease) error {
	if lease == nil || strings.TrimSpace(lease.Key) == "" || strings.TrimSpace(lease.Token) == "" {
		return lockError(ErrInvalidArgument, "lease with key and token is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[lease.Key]
	if !ok || entry.token != lease.Token {
		return nil
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(p.entries, lease.Key)
	return nil
}

// ForceRemove deletes the key unconditionally.
func (p *MemoryProvider) ForceRemove(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return lockError(ErrInvalidArgument, "lock key is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[key]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(p.entries, key)
	}
	return nil
}

// HeldKeys lists live leases under prefix with their remaining TTL.
func (p *MemoryProvider) HeldKeys(_ context.Context, prefix string) ([]HeldKey, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, lockError(ErrInvalidArgument, "key prefix is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now().UTC()
	var held []HeldKey
	for key, entry := range p.entries {
		if !strings.HasPrefix(key, prefix) || !entry.expireAt.After(now) {
			continue
		}
		held = append(held, HeldKey{Key: key, TTL: entry.expireAt.Sub(now)})
	}
	return held, nil
}

// HealthCheck always succeeds while the provider is open.
func (p *MemoryProvider) HealthCheck(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return lockError(ErrRetryable, "provider closed")
	}
	return nil
}

// Close stops all expiry timers and rejects further use.
func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, entry := range p.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	p.entries = map[string]*memoryEntry{}
	p.closed = true
	return nil
}

// Held reports whether key currently has a live lease. Test helper.
func (p *MemoryProvider) Held(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[key]
	return ok && entry.expireAt.After(time.Now().UTC())
}

func (p *MemoryProvider) expire(key, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[key]; ok && entry.token == token {
		delete(p.entries, key)
	}
}
