package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CrownStatusRepository implements the interface
var _ repositories.CrownStatusRepository = (*CrownStatusRepository)(nil)

// CrownStatusRepository handles the crownStatus singleton document
type CrownStatusRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewCrownStatusRepository creates a new CrownStatusRepository. Transactions
// require the database to be served by a replica set.
func NewCrownStatusRepository(db *mongo.Database) *CrownStatusRepository {
	return &CrownStatusRepository{
		client:     db.Client(),
		collection: db.Collection("crownStatus"),
	}
}

// Get reads the crown status, returning an empty status when none exists yet
func (r *CrownStatusRepository) Get(ctx context.Context) (*models.CrownStatus, error) {
	return r.find(ctx)
}

func (r *CrownStatusRepository) find(ctx context.Context) (*models.CrownStatus, error) {
	var status models.CrownStatus
	err := r.collection.FindOne(ctx, bson.M{"_id": models.CrownStatusID}).Decode(&status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &models.CrownStatus{ID: models.CrownStatusID}, nil
		}
		return nil, fmt.Errorf("read crown status: %w", err)
	}
	return &status, nil
}

// Transact reads the status and writes fn's update in one transaction
func (r *CrownStatusRepository) Transact(ctx context.Context, now time.Time, fn repositories.CrownStatusTxFunc) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		current, err := r.find(sc)
		if err != nil {
			return nil, err
		}
		update, err := fn(current)
		if err != nil || update == nil {
			return nil, err
		}
		return nil, r.merge(sc, update, now)
	})
	if err != nil {
		return fmt.Errorf("crown status transaction: %w", err)
	}
	return nil
}

// Merge applies update with an upsert
func (r *CrownStatusRepository) Merge(ctx context.Context, update *models.CrownStatusUpdate, now time.Time) error {
	if err := r.merge(ctx, update, now); err != nil {
		return fmt.Errorf("merge crown status: %w", err)
	}
	return nil
}

func (r *CrownStatusRepository) merge(ctx context.Context, update *models.CrownStatusUpdate, now time.Time) error {
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": models.CrownStatusID},
		bson.M{"$set": crownStatusFields(update, now)},
		opts,
	)
	return err
}

func crownStatusFields(u *models.CrownStatusUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if w := u.Winner; w != nil {
		set["activeUid"] = w.UID
		set["activePriceCents"] = w.PriceCents
		set["activePaymentIntentId"] = w.PaymentIntentID
		set["activeDateKey"] = w.DateKey
		set["activeSince"] = w.Since
		set["assignedBy"] = w.AssignedBy
		set["currentChampionName"] = w.ChampionName
		set["currentChampionBio"] = w.ChampionBio
		set["currentChampionPhotoUrl"] = w.ChampionPhotoURL
		set["lastSettledForDate"] = w.DateKey
	}
	if u.ClearLock {
		set["settlementInProgressAt"] = nil
		set["settlementInProgressForDate"] = nil
	}
	if l := u.Lock; l != nil {
		set["settlementInProgressAt"] = l.Since
		set["settlementInProgressForDate"] = l.DateKey
	}
	if a := u.LastAttempt; a != nil {
		set["lastAttemptForDate"] = a.DateKey
		set["lastAttemptResult"] = a.Result
	}
	return set
}
