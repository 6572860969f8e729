package mongodb

import (
	"context"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure SettlementEventRepository implements the interface
var _ repositories.SettlementEventRepository = (*SettlementEventRepository)(nil)

// SettlementEventRepository appends to and reads the crown_events log
type SettlementEventRepository struct {
	collection *mongo.Collection
}

// NewSettlementEventRepository creates a new SettlementEventRepository
func NewSettlementEventRepository(db *mongo.Database) *SettlementEventRepository {
	return &SettlementEventRepository{
		collection: db.Collection("crown_events"),
	}
}

// Create inserts a new event
func (r *SettlementEventRepository) Create(ctx context.Context, event *models.SettlementEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert settlement event: %w", err)
	}
	return nil
}

// FindRecent lists the newest events, optionally for one day
func (r *SettlementEventRepository) FindRecent(ctx context.Context, dateKey string, limit int) ([]*models.SettlementEvent, error) {
	filter := bson.M{}
	if dateKey != "" {
		filter["dateKey"] = dateKey
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query settlement events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*models.SettlementEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode settlement events: %w", err)
	}
	if events == nil {
		events = []*models.SettlementEvent{}
	}
	return events, nil
}
