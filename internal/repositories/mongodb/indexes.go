package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes the settlement queries rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "crownPrice", Value: -1}}},
		},
		"queueEntries": {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "crownPrice", Value: -1}, {Key: "priceJoinedAt", Value: 1}}},
		},
		"crown_events": {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "dateKey", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for collection, models := range specs {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
