// Package lock implements the TTL-bounded lease primitive the fleet uses
// for mutual exclusion. A lease lives in the coordination store under a
// single key, self-expires after its TTL, and can only be removed early by
// the holder that knows its token.
package lock

import (
	"context"
	"time"
)

// Lease identifies one successfully acquired lock. The token is an opaque
// random value naming the holder; it is required to release safely.
type Lease struct {
	Key      string
	Token    string
	ExpireAt time.Time
}

// Provider is the lease store contract.
//
// Acquire never blocks or retries internally: it performs a single atomic
// create-if-absent-with-TTL round trip and reports whether this caller won.
// When the store is unreachable, Acquire fails closed with an error; callers
// must treat that as "cannot safely proceed", never as "proceed unlocked".
//
// Release deletes the key only while it still holds the lease's token, so a
// stale holder can never remove a lock re-acquired by someone else. Releasing
// an already-expired lease is a safe no-op.
type Provider interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error)
	Release(ctx context.Context, lease *Lease) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// ForceRemover deletes a key without token ownership. Reserved for cleanup
// sweeps that have already established the owning resource is gone; regular
// callers must release through their lease.
type ForceRemover interface {
	ForceRemove(ctx context.Context, key string) error
}

// HeldKey describes one live lease observed by an Inspector: the lock key
// and how much lease time remains on it.
type HeldKey struct {
	Key string
	TTL time.Duration
}

// Inspector enumerates live leases under a key prefix. Cleanup sweeps use
// the remaining TTL to tell fresh locks from abandoned ones.
type Inspector interface {
	HeldKeys(ctx context.Context, prefix string) ([]HeldKey, error)
}
