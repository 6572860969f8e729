package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
)

// Compile-time check to ensure QueueServiceImpl implements QueueService
var _ QueueService = (*QueueServiceImpl)(nil)

const maxQueueListing = 200

// QueueServiceImpl projects candidates onto the public queue
type QueueServiceImpl struct {
	candidates repositories.CandidateRepository
	queue      repositories.QueueEntryRepository
	clock      clock.Clock
}

// NewQueueService creates a new QueueServiceImpl
func NewQueueService(candidates repositories.CandidateRepository, queue repositories.QueueEntryRepository, clk clock.Clock) *QueueServiceImpl {
	if clk == nil {
		clk = clock.Real{}
	}
	return &QueueServiceImpl{candidates: candidates, queue: queue, clock: clk}
}

// Sync refreshes the queue entry of uid from the candidate record
func (s *QueueServiceImpl) Sync(ctx context.Context, uid string) (*models.QueueEntry, error) {
	candidate, err := s.candidates.FindByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load candidate %s: %w", uid, err)
	}
	entry := models.QueueEntryFromCandidate(candidate, s.clock.Now())
	if err := s.queue.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the public queue
func (s *QueueServiceImpl) List(ctx context.Context, limit int) ([]*models.QueueEntry, error) {
	if limit <= 0 || limit > maxQueueListing {
		limit = maxQueueListing
	}
	return s.queue.List(ctx, limit)
}
