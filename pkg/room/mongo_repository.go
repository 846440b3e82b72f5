package room

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

const roomCollection = "rooms"

// MongoRepository persists rooms in MongoDB.
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

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Room, error) {
	var out Room
	err := r.adapter.FindOne(ctx, roomCollection, bson.M{"_id": id}, &out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, roomError(ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find room %s: %w", id, err)
	}
	return &out, nil
}

func (r *MongoRepository) FindExpired(ctx context.Context, now time.Time) ([]Room, error) {
	filter := bson.M{
		"autoDeletionDate": bson.M{"$ne": nil, "$lte": now},
	}
	var out []Room
	if err := r.adapter.FindAll(ctx, roomCollection, filter, &out); err != nil {
		return nil, fmt.Errorf("find expired rooms: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Save(ctx context.Context, room *Room) error {
	filter := bson.M{"_id": room.ID}
	update := bson.M{"$set": room}
	opts := options.Update().SetUpsert(true)
	if _, err := r.adapter.UpdateOneWithOptions(ctx, roomCollection, filter, update, opts); err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return nil
}

func (r *MongoRepository) SetMarkedForDeletion(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"markedForDeletion": true}}
	modified, err := r.adapter.UpdateOne(ctx, roomCollection, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("mark room %s: %w", id, err)
	}
	if modified == 0 {
		// Matched-but-unmodified means the room was already marked.
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return roomError(ErrRoomNotFound, id)
		}
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.adapter.DeleteOne(ctx, roomCollection, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	if deleted == 0 {
		return roomError(ErrRoomNotFound, id)
	}
	return nil
}

func (r *MongoRepository) exists(ctx context.Context, id string) (bool, error) {
	var out Room
	err := r.adapter.FindOne(ctx, roomCollection, bson.M{"_id": id}, &out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("room existence check %s: %w", id, err)
	}
	return true, nil
}
