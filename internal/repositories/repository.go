package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("repositories: not found")

// CandidateRepository defines the interface for candidate (user) data operations
type CandidateRepository interface {
	FindByID(ctx context.Context, id string) (*models.Candidate, error)
	// FindTopBidders returns candidates with a positive crownPrice ordered by
	// crownPrice descending, at most limit of them.
	FindTopBidders(ctx context.Context, limit int) ([]*models.Candidate, error)
	// List returns every candidate, active or not, ordered by key. A limit of
	// zero or less returns them all.
	List(ctx context.Context, limit int) ([]*models.Candidate, error)
	UpdatePaymentProfile(ctx context.Context, id string, update *models.PaymentProfileUpdate) error
	Upsert(ctx context.Context, candidate *models.Candidate) error
}

// CrownStatusTxFunc inspects the current crown status inside a transaction and
// returns the update to write, or nil to write nothing.
type CrownStatusTxFunc func(current *models.CrownStatus) (*models.CrownStatusUpdate, error)

// CrownStatusRepository defines the operations on the crown status singleton
type CrownStatusRepository interface {
	// Get returns the crown status. A missing document is returned as an
	// empty status, not an error.
	Get(ctx context.Context) (*models.CrownStatus, error)
	// Transact runs fn and its write as one atomic read-modify-write.
	Transact(ctx context.Context, now time.Time, fn CrownStatusTxFunc) error
	// Merge applies update outside of any transaction, creating the document
	// if needed.
	Merge(ctx context.Context, update *models.CrownStatusUpdate, now time.Time) error
}

// SettlementEventRepository defines the interface for the settlement audit log
type SettlementEventRepository interface {
	Create(ctx context.Context, event *models.SettlementEvent) error
	// FindRecent returns the newest events first. An empty dateKey matches
	// every day.
	FindRecent(ctx context.Context, dateKey string, limit int) ([]*models.SettlementEvent, error)
}

// QueueEntryRepository stores the public bid queue
type QueueEntryRepository interface {
	Upsert(ctx context.Context, entry *models.QueueEntry) error
	// List returns active entries by bid descending, earliest join first.
	List(ctx context.Context, limit int) ([]*models.QueueEntry, error)
}
