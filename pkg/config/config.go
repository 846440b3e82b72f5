// Package config loads and validates the coordination-core configuration
// with ENV > file > defaults precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// RecordingDeletionPolicy controls what happens to a room's recordings
// when the room is garbage-collected.
type RecordingDeletionPolicy string

const (
	// DeleteRecordings removes the room's recordings together with the room.
	DeleteRecordings RecordingDeletionPolicy = "delete"
	// KeepRecordings leaves recordings in place when the room is deleted.
	KeepRecordings RecordingDeletionPolicy = "keep"
)

// Config is the full configuration surface of the coordination core.
type Config struct {
	Service    ServiceConfig
	Redis      RedisConfig
	Mongo      MongoConfig
	Media      MediaConfig
	Ops        OpsConfig
	Rooms      RoomsConfig
	Recordings RecordingsConfig
	Webhook    WebhookConfig
}

// ServiceConfig identifies the instance and its logging behavior.
type ServiceConfig struct {
	Name      string
	LogLevel  string
	LogFormat string
}

// RedisConfig configures the coordination store connection.
type RedisConfig struct {
	URL              string
	OperationTimeout time.Duration
	// PingInterval is how often the connection monitor probes Redis to
	// detect ready/disconnected transitions.
	PingInterval time.Duration
}

// MongoConfig configures the persistence collaborator.
type MongoConfig struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// MediaConfig configures the media-engine control API.
type MediaConfig struct {
	URL              string
	APIKey           string
	OperationTimeout time.Duration
}

// OpsConfig configures the operational HTTP endpoint (healthz, metrics).
type OpsConfig struct {
	Address string
}

// RoomsConfig tunes the room auto-deletion lifecycle.
type RoomsConfig struct {
	// GCInterval is the period of the room garbage-collection sweep.
	GCInterval time.Duration
	// AutoDeletionDateFloor is the minimum distance into the future a
	// caller may schedule a room's auto deletion.
	AutoDeletionDateFloor time.Duration
	DeletionPolicy        RecordingDeletionPolicy
}

// RecordingsConfig tunes the recording lock and staleness lifecycle.
type RecordingsConfig struct {
	// LockTTL covers the expected total recording duration plus margin.
	LockTTL time.Duration
	// StartTimeout bounds how long a recording may sit in starting state
	// before the attempt is failed and its lock released.
	StartTimeout time.Duration
	// StaleThreshold is the maximum silence on a non-terminal recording
	// before the staleness sweep force-aborts it.
	StaleThreshold time.Duration
	// StaleSweepInterval is the period of the staleness sweep.
	StaleSweepInterval time.Duration
	// OrphanSweepInterval is the period of the orphaned-lock sweep.
	OrphanSweepInterval time.Duration
	// OrphanGrace protects the window between lock acquisition and the
	// recording record being created.
	OrphanGrace time.Duration
}

// WebhookConfig configures event delivery and signing. An empty URL
// disables delivery.
type WebhookConfig struct {
	// URL is the consumer endpoint events are POSTed to.
	URL string
	// APIKey is the shared secret used to sign outgoing webhook events.
	APIKey string
	// MaxEventAge bounds how old a signed event may be and still validate.
	MaxEventAge time.Duration
}

// DefaultConfig returns the defaults every deployment starts from.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:      "openvidu-meet",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Redis: RedisConfig{
			URL:              "redis://localhost:6379/0",
			OperationTimeout: 3 * time.Second,
			PingInterval:     5 * time.Second,
		},
		Mongo: MongoConfig{
			URL:              "mongodb://localhost:27017",
			Database:         "openvidu_meet",
			ConnectTimeout:   5 * time.Second,
			OperationTimeout: 5 * time.Second,
		},
		Media: MediaConfig{
			URL:              "http://localhost:7880",
			OperationTimeout: 5 * time.Second,
		},
		Ops: OpsConfig{
			Address: ":9464",
		},
		Rooms: RoomsConfig{
			GCInterval:            time.Hour,
			AutoDeletionDateFloor: time.Hour,
			DeletionPolicy:        DeleteRecordings,
		},
		Recordings: RecordingsConfig{
			LockTTL:             2 * time.Hour,
			StartTimeout:        30 * time.Second,
			StaleThreshold:      2 * time.Minute,
			StaleSweepInterval:  time.Minute,
			OrphanSweepInterval: 10 * time.Minute,
			OrphanGrace:         time.Minute,
		},
		Webhook: WebhookConfig{
			MaxEventAge: 2 * time.Minute,
		},
	}
}

// Validate rejects configurations the lifecycle engines cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url is required"))
	}
	if c.Mongo.URL == "" {
		errs = append(errs, errors.New("mongo.url is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	if c.Media.URL == "" {
		errs = append(errs, errors.New("media.url is required"))
	}
	if c.Rooms.GCInterval <= 0 {
		errs = append(errs, errors.New("rooms.gc_interval must be > 0"))
	}
	if c.Rooms.AutoDeletionDateFloor < 0 {
		errs = append(errs, errors.New("rooms.auto_deletion_date_floor must be >= 0"))
	}
	if c.Rooms.DeletionPolicy != DeleteRecordings && c.Rooms.DeletionPolicy != KeepRecordings {
		errs = append(errs, fmt.Errorf("rooms.deletion_policy must be %q or %q", DeleteRecordings, KeepRecordings))
	}
	if c.Recordings.LockTTL <= 0 {
		errs = append(errs, errors.New("recordings.lock_ttl must be > 0"))
	}
	if c.Recordings.StartTimeout <= 0 {
		errs = append(errs, errors.New("recordings.start_timeout must be > 0"))
	}
	if c.Recordings.StartTimeout >= c.Recordings.LockTTL {
		errs = append(errs, errors.New("recordings.start_timeout must be shorter than recordings.lock_ttl"))
	}
	if c.Recordings.StaleThreshold <= 0 {
		errs = append(errs, errors.New("recordings.stale_threshold must be > 0"))
	}
	if c.Recordings.StaleSweepInterval <= 0 {
		errs = append(errs, errors.New("recordings.stale_sweep_interval must be > 0"))
	}
	if c.Recordings.OrphanSweepInterval <= 0 {
		errs = append(errs, errors.New("recordings.orphan_sweep_interval must be > 0"))
	}
	if c.Recordings.OrphanGrace < 0 {
		errs = append(errs, errors.New("recordings.orphan_grace must be >= 0"))
	}
	if c.Webhook.MaxEventAge <= 0 {
		errs = append(errs, errors.New("webhook.max_event_age must be > 0"))
	}

	return errors.Join(errs...)
}
