package mongodb

import (
	"context"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure QueueEntryRepository implements the interface
var _ repositories.QueueEntryRepository = (*QueueEntryRepository)(nil)

// QueueEntryRepository handles MongoDB operations for the public queue
type QueueEntryRepository struct {
	collection *mongo.Collection
}

// NewQueueEntryRepository creates a new QueueEntryRepository
func NewQueueEntryRepository(db *mongo.Database) *QueueEntryRepository {
	return &QueueEntryRepository{
		collection: db.Collection("queueEntries"),
	}
}

// Upsert merges the entry into its document
func (r *QueueEntryRepository) Upsert(ctx context.Context, entry *models.QueueEntry) error {
	update := bson.M{"$set": bson.M{
		"crownPrice":    entry.CrownPrice,
		"isActive":      entry.IsActive,
		"priceJoinedAt": entry.PriceJoinedAt,
		"updatedAt":     entry.UpdatedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": entry.UID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert queue entry %s: %w", entry.UID, err)
	}
	return nil
}

// List returns the active queue
func (r *QueueEntryRepository) List(ctx context.Context, limit int) ([]*models.QueueEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "crownPrice", Value: -1}, {Key: "priceJoinedAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true, "crownPrice": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []*models.QueueEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode queue entries: %w", err)
	}
	return entries, nil
}
