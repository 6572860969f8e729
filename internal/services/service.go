package services

import (
	"context"

	"github.com/ArowuTest/crownbid-backend/internal/models"
)

// SettlementService defines the crown settlement operations
type SettlementService interface {
	// RunNightly settles the crown for the current civil day. It is safe to
	// call repeatedly; only one invocation per day produces a winner.
	RunNightly(ctx context.Context) (*models.SettlementResult, error)

	// AssignNow charges candidateKey and crowns them immediately. A
	// fractional amountOverride is rounded to whole cents. Failures are
	// returned as *AssignError.
	AssignNow(ctx context.Context, operatorID, candidateKey string, amountOverride *float64) (*models.AssignResult, error)

	// ForceUnlock clears the settlement lock without running settlement and
	// returns the current date key
	ForceUnlock(ctx context.Context, operatorID string) (string, error)

	// PreviewRanking returns the eligible candidates in the order tonight's
	// run would try them
	PreviewRanking(ctx context.Context) ([]*models.RankedCandidate, error)
}

// CrownStatusService defines the read side of the crown
type CrownStatusService interface {
	// PublicCrown returns the snapshot shown on the homepage, or nil when no
	// one holds the crown
	PublicCrown(ctx context.Context) (*models.PublicCrown, error)

	// AdminView returns the raw status with live and snapshot champion views
	AdminView(ctx context.Context) (*models.AdminCrownView, error)

	// RecentEvents lists settlement events, newest first
	RecentEvents(ctx context.Context, dateKey string, limit int) ([]*models.SettlementEvent, error)

	// ListUsers returns the operator directory of all candidates
	ListUsers(ctx context.Context, limit int) ([]*models.AdminUser, error)
}

// PaymentMethodService defines the card vaulting operations used by
// candidates to become chargeable
type PaymentMethodService interface {
	CreateSetupIntent(ctx context.Context, uid, email string) (*models.SetupIntentResult, error)
	AttachMethod(ctx context.Context, uid, paymentMethodID string) error
	SetDefaultMethod(ctx context.Context, uid, paymentMethodID string) (*models.CardSummary, error)
	DetachMethod(ctx context.Context, uid, paymentMethodID string) error
	Deactivate(ctx context.Context, uid string) error
}

// QueueService maintains the public bid queue
type QueueService interface {
	// Sync copies the candidate's public bid fields onto their queue entry
	Sync(ctx context.Context, uid string) (*models.QueueEntry, error)
	List(ctx context.Context, limit int) ([]*models.QueueEntry, error)
}
