package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CandidateRepository implements the interface
var _ repositories.CandidateRepository = (*CandidateRepository)(nil)

// CandidateRepository handles MongoDB operations for candidates
type CandidateRepository struct {
	collection *mongo.Collection
}

// NewCandidateRepository creates a new CandidateRepository over the users
// collection
func NewCandidateRepository(db *mongo.Database) *CandidateRepository {
	return &CandidateRepository{
		collection: db.Collection("users"),
	}
}

// FindByID finds a candidate by key
func (r *CandidateRepository) FindByID(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&candidate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate %s: %w", id, err)
	}
	return &candidate, nil
}

// FindTopBidders returns the highest bidders, bounded by limit
func (r *CandidateRepository) FindTopBidders(ctx context.Context, limit int) ([]*models.Candidate, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "crownPrice", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"crownPrice": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("query top bidders: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []*models.Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("decode top bidders: %w", err)
	}
	if candidates == nil {
		candidates = []*models.Candidate{}
	}
	return candidates, nil
}

// List returns candidates ordered by key, including inactive and zero-bid ones
func (r *CandidateRepository) List(ctx context.Context, limit int) ([]*models.Candidate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer cursor.Close(ctx)

	candidates := []*models.Candidate{}
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return candidates, nil
}

// UpdatePaymentProfile writes the card and customer fields of a candidate
func (r *CandidateRepository) UpdatePaymentProfile(ctx context.Context, id string, update *models.PaymentProfileUpdate) error {
	set, unset := paymentProfileFields(update)
	doc := bson.M{}
	if len(set) > 0 {
		doc["$set"] = set
	}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	if len(doc) == 0 {
		return nil
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("update payment profile %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Upsert replaces a candidate document, inserting it if absent
func (r *CandidateRepository) Upsert(ctx context.Context, candidate *models.Candidate) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": candidate.ID}, candidate, opts)
	if err != nil {
		return fmt.Errorf("upsert candidate %s: %w", candidate.ID, err)
	}
	return nil
}

func paymentProfileFields(u *models.PaymentProfileUpdate) (bson.M, bson.M) {
	set := bson.M{}
	unset := bson.M{}
	if u.ClearPaymentMethod {
		for _, field := range []string{"stripeDefaultPaymentMethodId", "defaultPaymentMethodId", "cardBrand", "cardLast4"} {
			unset[field] = ""
		}
	}
	if u.StripeCustomerID != nil {
		set["stripeCustomerId"] = *u.StripeCustomerID
	}
	if u.DefaultPaymentMethodID != nil {
		set["stripeDefaultPaymentMethodId"] = *u.DefaultPaymentMethodID
		set["defaultPaymentMethodId"] = *u.DefaultPaymentMethodID
	}
	if u.CardBrand != nil {
		set["cardBrand"] = *u.CardBrand
	}
	if u.CardLast4 != nil {
		set["cardLast4"] = *u.CardLast4
	}
	if u.IsActive != nil {
		set["isActive"] = *u.IsActive
	}
	for field := range set {
		delete(unset, field)
	}
	return set, unset
}
