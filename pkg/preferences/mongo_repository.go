package preferences

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	mongostore "github.com/OpenVidu/openvidu-meet-sub010/pkg/store/mongodb"
)

const preferencesCollection = "global_preferences"

// MongoRepository persists the preferences document in MongoDB.
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

func (r *MongoRepository) Get(ctx context.Context) (*GlobalPreferences, error) {
	var out GlobalPreferences
	err := r.adapter.FindOne(ctx, preferencesCollection, bson.M{"_id": GlobalPreferencesID}, &out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load global preferences: %w", err)
	}
	return &out, nil
}

// Insert relies on the unique _id index: a concurrent insert from another
// instance surfaces as a duplicate-key error.
func (r *MongoRepository) Insert(ctx context.Context, prefs *GlobalPreferences) error {
	prefs.ID = GlobalPreferencesID
	if err := r.adapter.InsertOne(ctx, preferencesCollection, prefs); err != nil {
		return fmt.Errorf("insert global preferences: %w", err)
	}
	return nil
}

func (r *MongoRepository) Update(ctx context.Context, prefs *GlobalPreferences) error {
	prefs.ID = GlobalPreferencesID
	filter := bson.M{"_id": GlobalPreferencesID}
	modified, err := r.adapter.UpdateOne(ctx, preferencesCollection, filter, bson.M{"$set": prefs})
	if err != nil {
		return fmt.Errorf("update global preferences: %w", err)
	}
	if modified == 0 {
		// Matched-but-unmodified writes are fine; a missing document is not.
		if _, err := r.Get(ctx); err != nil {
			return err
		}
	}
	return nil
}
