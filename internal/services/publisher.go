package services

import (
	"context"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/cache"
	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/metrics"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// OutcomePublisher writes settlement results onto the crown status. It must
// only be called after a charge has succeeded.
type OutcomePublisher struct {
	candidates repositories.CandidateRepository
	status     repositories.CrownStatusRepository
	crownCache cache.CrownCache
	clock      clock.Clock
	metrics    *metrics.SettlementMetrics
}

// NewOutcomePublisher creates an OutcomePublisher
func NewOutcomePublisher(
	candidates repositories.CandidateRepository,
	status repositories.CrownStatusRepository,
	crownCache cache.CrownCache,
	clk clock.Clock,
	m *metrics.SettlementMetrics,
) *OutcomePublisher {
	if crownCache == nil {
		crownCache = cache.Noop{}
	}
	return &OutcomePublisher{
		candidates: candidates,
		status:     status,
		crownCache: crownCache,
		clock:      clk,
		metrics:    m,
	}
}

// PublishWin crowns winner. The display snapshot is taken from a fresh read
// of the candidate; the ranked copy is used only if that read fails.
func (p *OutcomePublisher) PublishWin(ctx context.Context, winner *models.Candidate, amountCents int64, chargeRef, dateKey string, source models.SettlementSource) error {
	profile := winner
	if fresh, err := p.candidates.FindByID(ctx, winner.ID); err != nil {
		slog.Warn("PublishWin: could not re-read winner profile, using ranked copy", "error", err, "uid", winner.ID)
	} else {
		profile = fresh
	}

	assignedBy := models.AssignedByNightly
	if source == models.SettlementSourceManual {
		assignedBy = models.AssignedByManual
	}

	now := p.clock.Now()
	update := &models.CrownStatusUpdate{
		Winner: &models.CrownWinner{
			UID:              winner.ID,
			PriceCents:       amountCents,
			PaymentIntentID:  chargeRef,
			DateKey:          dateKey,
			Since:            now,
			AssignedBy:       assignedBy,
			ChampionName:     profile.Name(),
			ChampionBio:      profile.Bio,
			ChampionPhotoURL: profile.PhotoURL,
		},
	}
	if err := p.status.Merge(ctx, update, now); err != nil {
		return fmt.Errorf("write crown winner: %w", err)
	}

	if err := p.crownCache.Invalidate(ctx); err != nil {
		slog.Warn("PublishWin: failed to invalidate public crown cache", "error", err)
	}
	p.metrics.ObserveWin(amountCents, now)
	slog.Info("Crown published", "uid", winner.ID, "amountCents", amountCents, "paymentIntentId", chargeRef, "dateKey", dateKey, "assignedBy", assignedBy)
	return nil
}

// PublishNoWinner records why an attempt for dateKey produced no winner.
// The current titleholder, if any, is left in place.
func (p *OutcomePublisher) PublishNoWinner(ctx context.Context, dateKey string, outcome models.SettlementOutcome) error {
	update := &models.CrownStatusUpdate{
		LastAttempt: &models.CrownAttempt{DateKey: dateKey, Result: string(outcome)},
	}
	if err := p.status.Merge(ctx, update, p.clock.Now()); err != nil {
		return fmt.Errorf("record no-winner attempt: %w", err)
	}
	return nil
}
