// Package redis wraps connectivity to the coordination store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

// Config holds connection settings for the coordination store.
type Config struct {
	URL              string
	OperationTimeout time.Duration
}

func (c *Config) normalize() {
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 3 * time.Second
	}
}

// Adapter owns the shared go-redis client.
type Adapter struct {
	client *redis.Client
	log    logger.Logger
	config Config
}

// NewAdapter connects to Redis and verifies connectivity with a ping.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	cfg.normalize()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = cfg.OperationTimeout
	opts.ReadTimeout = cfg.OperationTimeout
	opts.WriteTimeout = cfg.OperationTimeout

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.OperationTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("redis connection established", "url", opts.Addr)
	return &Adapter{client: client, log: log, config: cfg}, nil
}

// Client exposes the underlying go-redis client.
func (a *Adapter) Client() *redis.Client {
	return a.client
}

// HealthCheck verifies the connection is alive.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, a.config.OperationTimeout)
	defer cancel()
	if err := a.client.Ping(opCtx).Err(); err != nil {
		return fmt.Errorf("redis healthcheck: %w", err)
	}
	return nil
}

// Close releases client connections.
func (a *Adapter) Close() error {
	return a.client.Close()
}
