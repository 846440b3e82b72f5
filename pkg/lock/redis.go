package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix           = "ov_meet"
	defaultOperationTimeout = 3 * time.Second
)

// Compare-and-delete: only the holder whose token is still stored may
// remove the key. Returns 1 when the key was deleted, 0 otherwise.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisProviderConfig tunes the Redis-backed provider.
type RedisProviderConfig struct {
	// Prefix namespaces every lock key in the shared key space.
	Prefix string
	// OperationTimeout bounds each store round trip.
	OperationTimeout time.Duration
}

func (c *RedisProviderConfig) normalize() {
	if strings.TrimSpace(c.Prefix) == "" {
		c.Prefix = defaultPrefix
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
}

// RedisProvider implements Provider with SET NX PX acquire and a Lua
// compare-and-delete release.
type RedisProvider struct {
	client *redis.Client
	config RedisProviderConfig
}

// NewRedisProvider wraps an existing go-redis client. The client's
// lifecycle belongs to the caller; Close here is a no-op on it.
func NewRedisProvider(client *redis.Client, cfg RedisProviderConfig) (*RedisProvider, error) {
	if client == nil {
		return nil, lockError(ErrInvalidArgument, "redis client is required")
	}
	cfg.normalize()
	return &RedisProvider{client: client, config: cfg}, nil
}

// Acquire performs a single SET NX PX attempt.
func (p *RedisProvider) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if p == nil || p.client == nil {
		return nil, false, lockError(ErrNotInitialized, "")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, lockError(ErrInvalidArgument, "lock key is required")
	}
	if ttl <= 0 {
		return nil, false, lockError(ErrInvalidArgument, "ttl must be > 0")
	}

	token := uuid.NewString()
	opCtx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()

	acquired, err := p.client.SetNX(opCtx, p.fullKey(key), token, ttl).Result()
	if err != nil {
		return nil, false, errors.Join(lockError(ErrRetryable, "acquire failed"), err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &Lease{
		Key:      key,
		Token:    token,
		ExpireAt: time.Now().UTC().Add(ttl),
	}, true, nil
}

// Release removes the key if it still carries the lease token. A lease
// that expired or was taken over by another holder is left alone.
func (p *RedisProvider) Release(ctx context.Context, lease *Lease) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "")
	}
	if lease == nil || strings.TrimSpace(lease.Key) == "" || strings.TrimSpace(lease.Token) == "" {
		return lockError(ErrInvalidArgument, "lease with key and token is required")
	}

	opCtx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()

	_, err := releaseScript.Run(opCtx, p.client, []string{p.fullKey(lease.Key)}, lease.Token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Join(lockError(ErrRetryable, "release failed"), err)
	}
	return nil
}

// ForceRemove deletes the key unconditionally.
func (p *RedisProvider) ForceRemove(ctx context.Context, key string) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return lockError(ErrInvalidArgument, "lock key is required")
	}
	opCtx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()
	if err := p.client.Del(opCtx, p.fullKey(key)).Err(); err != nil {
		return errors.Join(lockError(ErrRetryable, "force remove failed"), err)
	}
	return nil
}

// HeldKeys scans for live leases under prefix and reports the remaining
// TTL of each. Keys that expire between SCAN and PTTL are skipped.
func (p *RedisProvider) HeldKeys(ctx context.Context, prefix string) ([]HeldKey, error) {
	if p == nil || p.client == nil {
		return nil, lockError(ErrNotInitialized, "")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, lockError(ErrInvalidArgument, "key prefix is required")
	}

	opCtx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()

	fullPrefix := p.fullKey(prefix)
	var held []HeldKey
	iter := p.client.Scan(opCtx, 0, fullPrefix+"*", 100).Iterator()
	for iter.Next(opCtx) {
		fullKey := iter.Val()
		ttl, err := p.client.PTTL(opCtx, fullKey).Result()
		if err != nil {
			return nil, errors.Join(lockError(ErrRetryable, "lease ttl lookup failed"), err)
		}
		if ttl <= 0 {
			continue
		}
		held = append(held, HeldKey{
			Key: strings.TrimPrefix(fullKey, strings.TrimRight(p.config.Prefix, ":")+":"),
			TTL: ttl,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Join(lockError(ErrRetryable, "lease scan failed"), err)
	}
	return held, nil
}

// HealthCheck verifies store connectivity.
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	if p == nil || p.client == nil {
		return lockError(ErrNotInitialized, "")
	}
	opCtx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()
	if err := p.client.Ping(opCtx).Err(); err != nil {
		return errors.Join(lockError(ErrRetryable, "redis ping failed"), err)
	}
	return nil
}

// Close is a no-op; the shared client is owned by the store adapter.
func (p *RedisProvider) Close() error {
	return nil
}

func (p *RedisProvider) fullKey(key string) string {
	return strings.TrimRight(p.config.Prefix, ":") + ":" + key
}
