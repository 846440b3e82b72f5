// Package mongodb wraps connectivity to the persistence store.
package mongodb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/OpenVidu/openvidu-meet-sub010/pkg/observability/logger"
)

// Config holds MongoDB connection settings.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

func (c *Config) normalize() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = 5 * time.Second
	}
}

// Adapter owns the Mongo client used by the repositories.
type Adapter struct {
	client   *mongo.Client
	database string
	log      logger.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewAdapter connects and verifies connectivity with a ping. It does not
// create collections or indexes.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongodb url is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	cfg.normalize()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("mongodb connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		log:      log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

// Collection returns a handle to the named collection.
func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.client.Database(a.database).Collection(name)
}

// FindOne decodes a single document matching filter into result.
func (a *Adapter) FindOne(ctx context.Context, collection string, filter, result interface{}) error {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	return a.Collection(collection).FindOne(opCtx, filter).Decode(result)
}

// FindAll decodes every document matching filter into results, which must
// be a pointer to a slice.
func (a *Adapter) FindAll(ctx context.Context, collection string, filter, results interface{}) error {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	cursor, err := a.Collection(collection).Find(opCtx, filter)
	if err != nil {
		return err
	}
	return cursor.All(opCtx, results)
}

// InsertOne inserts a document.
func (a *Adapter) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	_, err := a.Collection(collection).InsertOne(opCtx, doc)
	return err
}

// UpdateOne applies update to the first document matching filter and
// returns the modified count.
func (a *Adapter) UpdateOne(ctx context.Context, collection string, filter, update interface{}) (int64, error) {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	result, err := a.Collection(collection).UpdateOne(opCtx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UpdateOneWithOptions is UpdateOne with driver options (such as upsert).
func (a *Adapter) UpdateOneWithOptions(ctx context.Context, collection string, filter, update interface{}, opts *options.UpdateOptions) (int64, error) {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	result, err := a.Collection(collection).UpdateOne(opCtx, filter, update, opts)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount + result.UpsertedCount, nil
}

// DeleteOne removes the first document matching filter and returns the
// deleted count.
func (a *Adapter) DeleteOne(ctx context.Context, collection string, filter interface{}) (int64, error) {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	result, err := a.Collection(collection).DeleteOne(opCtx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteMany removes every document matching filter.
func (a *Adapter) DeleteMany(ctx context.Context, collection string, filter interface{}) (int64, error) {
	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	result, err := a.Collection(collection).DeleteMany(opCtx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// HealthCheck verifies the connection is alive.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return fmt.Errorf("mongodb adapter is closed")
	}

	opCtx, cancel := a.operationContext(ctx)
	defer cancel()
	if err := a.client.Ping(opCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb healthcheck: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

func (a *Adapter) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}
