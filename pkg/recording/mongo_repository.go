package recording

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongostore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/mongodb"
)

const recordingCollection = "recordings"

var nonTerminalStatuses = []Status{StatusStarting, StatusActive, StatusEnding}

// MongoRepository persists recordings in MongoDB.
type MongoRepository struct {
	adapter *mongostore.Adapter
}

// NewMongoRepository wraps the shared Mongo adapter.
func NewMongoRepository(adapter *mongostore.Adapter) (*MongoRepository, error) {
	if adapter == nil {
		return nil, errors.New("mongodb adapter is required")
	}
	return &MongoRepository{adapter: adapter}, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Recording, error) {
	var out Recording
	err := r.adapter.FindOne(ctx, recordingCollection, bson.M{"_id": id}, &out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, recordingError(ErrRecordingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find recording %s: %w", id, err)
	}
	return &out, nil
}

func (r *MongoRepository) FindStale(ctx context.Context, olderThan time.Time) ([]Recording, error) {
	filter := bson.M{
		"status":        bson.M{"$in": nonTerminalStatuses},
		"lastUpdatedAt": bson.M{"$lte": olderThan},
	}
	var out []Recording
	if err := r.adapter.FindAll(ctx, recordingCollection, filter, &out); err != nil {
		return nil, fmt.Errorf("find stale recordings: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) HasActive(ctx context.Context, roomID string) (bool, error) {
	filter := bson.M{
		"roomId": roomID,
		"status": bson.M{"$in": nonTerminalStatuses},
	}
	var out Recording
	err := r.adapter.FindOne(ctx, recordingCollection, filter, &out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("active recording check for room %s: %w", roomID, err)
	}
	return true, nil
}

func (r *MongoRepository) Save(ctx context.Context, rec *Recording) error {
	filter := bson.M{"_id": rec.ID}
	update := bson.M{"$set": rec}
	opts := options.Update().SetUpsert(true)
	if _, err := r.adapter.UpdateOneWithOptions(ctx, recordingCollection, filter, update, opts); err != nil {
		return fmt.Errorf("save recording %s: %w", rec.ID, err)
	}
	return nil
}

func (r *MongoRepository) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	deleted, err := r.adapter.DeleteMany(ctx, recordingCollection, bson.M{"roomId": roomID})
	if err != nil {
		return 0, fmt.Errorf("delete recordings of room %s: %w", roomID, err)
	}
	return deleted, nil
}
