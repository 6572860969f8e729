package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
)

// LockResult is the outcome of a lock acquisition attempt
type LockResult int

const (
	LockAcquired LockResult = iota
	LockAlreadySettled
	LockAlreadySettling
)

func (r LockResult) String() string {
	switch r {
	case LockAcquired:
		return "acquired"
	case LockAlreadySettled:
		return "alreadySettled"
	case LockAlreadySettling:
		return "alreadySettling"
	default:
		return fmt.Sprintf("LockResult(%d)", int(r))
	}
}

// LockManager guards the nightly run with a time-bounded marker on the crown
// status. A lock older than staleAfter is considered abandoned.
type LockManager struct {
	status     repositories.CrownStatusRepository
	staleAfter time.Duration
}

// NewLockManager creates a LockManager
func NewLockManager(status repositories.CrownStatusRepository, staleAfter time.Duration) *LockManager {
	return &LockManager{status: status, staleAfter: staleAfter}
}

// AcquireOrSkip takes the lock for dateKey inside one transaction unless the
// day is already settled or a fresh lock is held.
func (l *LockManager) AcquireOrSkip(ctx context.Context, dateKey string, now time.Time) (LockResult, error) {
	result := LockAcquired
	err := l.status.Transact(ctx, now, func(current *models.CrownStatus) (*models.CrownStatusUpdate, error) {
		if current.LastSettledForDate == dateKey {
			result = LockAlreadySettled
			return nil, nil
		}
		if current.LockHeld() && current.LockAge(now) < l.staleAfter {
			result = LockAlreadySettling
			return nil, nil
		}
		result = LockAcquired
		return &models.CrownStatusUpdate{
			Lock: &models.CrownLock{Since: now, DateKey: dateKey},
		}, nil
	})
	if err != nil {
		return LockAcquired, err
	}
	return result, nil
}

// Release clears both lock fields
func (l *LockManager) Release(ctx context.Context, now time.Time) error {
	return l.status.Merge(ctx, &models.CrownStatusUpdate{ClearLock: true}, now)
}
