package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/cache"
	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/config"
	"github.com/ArowuTest/crownbid-backend/internal/metrics"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure SettlementServiceImpl implements SettlementService
var _ SettlementService = (*SettlementServiceImpl)(nil)

// SettlementOptions are the settlement rules
type SettlementOptions struct {
	Location           *time.Location
	Currency           string
	MinimumAmountCents int64
	CandidateLimit     int
	LockStaleAfter     time.Duration
}

// SettlementOptionsFromConfig resolves the configured timezone
func SettlementOptionsFromConfig(cfg config.SettlementConfig) (SettlementOptions, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return SettlementOptions{}, fmt.Errorf("load settlement timezone: %w", err)
	}
	return SettlementOptions{
		Location:           loc,
		Currency:           strings.ToLower(cfg.Currency),
		MinimumAmountCents: cfg.MinimumAmountCents,
		CandidateLimit:     cfg.CandidateLimit,
		LockStaleAfter:     cfg.LockStaleAfter,
	}, nil
}

// SettlementServiceImpl runs the nightly settlement and the manual override
type SettlementServiceImpl struct {
	candidates repositories.CandidateRepository
	locks      *LockManager
	publisher  *OutcomePublisher
	events     *eventRecorder
	gateway    payments.Gateway
	clock      clock.Clock
	metrics    *metrics.SettlementMetrics
	opts       SettlementOptions
}

// NewSettlementService creates a new SettlementServiceImpl
func NewSettlementService(
	candidates repositories.CandidateRepository,
	status repositories.CrownStatusRepository,
	eventRepo repositories.SettlementEventRepository,
	gateway payments.Gateway,
	crownCache cache.CrownCache,
	clk clock.Clock,
	m *metrics.SettlementMetrics,
	opts SettlementOptions,
) *SettlementServiceImpl {
	if clk == nil {
		clk = clock.Real{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &SettlementServiceImpl{
		candidates: candidates,
		locks:      NewLockManager(status, opts.LockStaleAfter),
		publisher:  NewOutcomePublisher(candidates, status, crownCache, clk, m),
		events:     &eventRecorder{repo: eventRepo, clock: clk},
		gateway:    gateway,
		clock:      clk,
		metrics:    m,
		opts:       opts,
	}
}

// RunNightly settles today's crown. Lock contention is a normal result, not an
// error; only store failures are returned, after the lock has been released.
func (s *SettlementServiceImpl) RunNightly(ctx context.Context) (result *models.SettlementResult, err error) {
	started := s.clock.Now()
	dateKey := DateKey(started, s.opts.Location)

	lock, err := s.locks.AcquireOrSkip(ctx, dateKey, started)
	if err != nil {
		slog.Error("RunNightly: failed to acquire settlement lock", "error", err, "dateKey", dateKey)
		s.metrics.ObserveRun("error", 0)
		return nil, fmt.Errorf("acquire settlement lock: %w", err)
	}
	switch lock {
	case LockAlreadySettled:
		slog.Info("RunNightly: already settled", "dateKey", dateKey)
		s.metrics.ObserveRun(string(models.OutcomeAlreadySettled), 0)
		return &models.SettlementResult{Outcome: models.OutcomeAlreadySettled, DateKey: dateKey}, nil
	case LockAlreadySettling:
		slog.Info("RunNightly: another run holds the lock", "dateKey", dateKey)
		s.metrics.ObserveRun(string(models.OutcomeAlreadySettling), 0)
		return &models.SettlementResult{Outcome: models.OutcomeAlreadySettling, DateKey: dateKey}, nil
	}

	// Once the lock is held the run completes even if ctx is cancelled.
	runCtx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("RunNightly: recovered from panic", "panic", r, "dateKey", dateKey)
			result, err = nil, fmt.Errorf("settlement panicked: %v", r)
		}
		if relErr := s.locks.Release(runCtx, s.clock.Now()); relErr != nil {
			slog.Error("RunNightly: failed to release settlement lock", "error", relErr, "dateKey", dateKey)
		}
		outcome := "error"
		if result != nil {
			outcome = string(result.Outcome)
		}
		s.metrics.ObserveRun(outcome, s.clock.Now().Sub(started))
	}()

	return s.settle(runCtx, dateKey)
}

func (s *SettlementServiceImpl) settle(ctx context.Context, dateKey string) (*models.SettlementResult, error) {
	pool, err := s.candidates.FindTopBidders(ctx, s.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(pool) == 0 {
		return s.noWinner(ctx, dateKey, models.OutcomeNoCandidates, models.EventUIDNone, ReasonNoCandidates, 0)
	}

	ranked := RankCandidates(pool)
	if len(ranked) == 0 {
		return s.noWinner(ctx, dateKey, models.OutcomeNoActiveCandidates, models.EventUIDNone, ReasonNoActiveCandidates, 0)
	}

	slog.Info("RunNightly: charging ranked candidates", "dateKey", dateKey, "pool", len(pool), "eligible", len(ranked))
	for i, candidate := range ranked {
		charge, amountCents, failure := s.attemptCharge(ctx, candidate, dateKey)
		if failure != nil {
			s.events.fail(ctx, failure)
			s.metrics.ObserveAttempt(string(models.SettlementSourceNightly), metrics.AttemptFail)
			slog.Warn("RunNightly: candidate charge failed", "uid", candidate.ID, "rank", i+1, "reason", failure.Error, "dateKey", dateKey)
			continue
		}

		if err := s.publisher.PublishWin(ctx, candidate, amountCents, charge.ID, dateKey, models.SettlementSourceNightly); err != nil {
			s.events.fail(ctx, &models.SettlementEvent{
				Source:          models.SettlementSourceNightly,
				UID:             candidate.ID,
				AmountCents:     amountCents,
				DateKey:         dateKey,
				PaymentIntentID: charge.ID,
				StripeStatus:    charge.Status,
				Error:           "charge succeeded but publishing the crown failed: " + err.Error(),
			})
			s.metrics.ObserveAttempt(string(models.SettlementSourceNightly), metrics.AttemptFail)
			return nil, err
		}
		s.events.win(ctx, models.SettlementSourceNightly, candidate.ID, amountCents, dateKey, charge.ID)
		s.metrics.ObserveAttempt(string(models.SettlementSourceNightly), metrics.AttemptWin)

		return &models.SettlementResult{
			Outcome:         models.OutcomeWon,
			DateKey:         dateKey,
			WinnerUID:       candidate.ID,
			AmountCents:     amountCents,
			PaymentIntentID: charge.ID,
			Attempts:        i + 1,
		}, nil
	}

	return s.noWinner(ctx, dateKey, models.OutcomeAllFailed, models.EventUIDAll, ReasonAllFailed, len(ranked))
}

// attemptCharge makes the single charge attempt for one ranked candidate. A
// non-nil failure event means the candidate is skipped.
func (s *SettlementServiceImpl) attemptCharge(ctx context.Context, c *models.Candidate, dateKey string) (*payments.Charge, int64, *models.SettlementEvent) {
	failure := &models.SettlementEvent{
		Source:  models.SettlementSourceNightly,
		UID:     c.ID,
		DateKey: dateKey,
	}

	amountCents, ok := ResolveNightlyAmount(c)
	failure.AmountCents = amountCents
	if !ok || amountCents < s.opts.MinimumAmountCents {
		failure.Error = ReasonInvalidAmount
		return nil, 0, failure
	}

	customerID, paymentMethodID, ok := ResolvePaymentRefs(c)
	if !ok {
		failure.Error = ReasonMissingPaymentMethod
		return nil, 0, failure
	}

	charge, err := s.gateway.CreateAndConfirmCharge(ctx, payments.ChargeRequest{
		AmountCents:     amountCents,
		Currency:        s.opts.Currency,
		CustomerID:      customerID,
		PaymentMethodID: paymentMethodID,
		IdempotencyKey:  nightlyIdempotencyKey(dateKey, c.ID, amountCents),
		Description:     fmt.Sprintf("Crown Winner Charge (%s)", dateKey),
		Metadata: map[string]string{
			"uid":     c.ID,
			"dateKey": dateKey,
			"purpose": "crown_nightly",
		},
	})
	if err != nil {
		failure.Error = err.Error()
		var perr *payments.Error
		if errors.As(err, &perr) {
			failure.PaymentIntentID = perr.PaymentIntentID
			failure.StripeStatus = perr.PaymentIntentStatus
		}
		return nil, 0, failure
	}
	if !charge.Succeeded() {
		failure.Error = "Stripe status: " + charge.Status
		failure.PaymentIntentID = charge.ID
		failure.StripeStatus = charge.Status
		return nil, 0, failure
	}
	return charge, amountCents, nil
}

func (s *SettlementServiceImpl) noWinner(ctx context.Context, dateKey string, outcome models.SettlementOutcome, uid, reason string, attempts int) (*models.SettlementResult, error) {
	if err := s.publisher.PublishNoWinner(ctx, dateKey, outcome); err != nil {
		return nil, err
	}
	s.events.fail(ctx, &models.SettlementEvent{
		Source:  models.SettlementSourceNightly,
		UID:     uid,
		DateKey: dateKey,
		Error:   reason,
	})
	slog.Warn("RunNightly: no winner", "dateKey", dateKey, "outcome", outcome, "attempts", attempts)
	return &models.SettlementResult{Outcome: outcome, DateKey: dateKey, Attempts: attempts}, nil
}

// ForceUnlock clears the settlement lock
func (s *SettlementServiceImpl) ForceUnlock(ctx context.Context, operatorID string) (string, error) {
	now := s.clock.Now()
	dateKey := DateKey(now, s.opts.Location)
	if err := s.locks.Release(ctx, now); err != nil {
		return "", fmt.Errorf("force unlock: %w", err)
	}
	s.metrics.ObserveForceUnlock()
	slog.Warn("Settlement lock force-cleared", "operator", operatorID, "dateKey", dateKey)
	return dateKey, nil
}

// PreviewRanking ranks the current pool without charging anyone
func (s *SettlementServiceImpl) PreviewRanking(ctx context.Context) ([]*models.RankedCandidate, error) {
	pool, err := s.candidates.FindTopBidders(ctx, s.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	ranked := RankCandidates(pool)
	out := make([]*models.RankedCandidate, 0, len(ranked))
	for i, c := range ranked {
		amountCents, ok := ResolveNightlyAmount(c)
		_, _, hasPM := ResolvePaymentRefs(c)
		out = append(out, &models.RankedCandidate{
			Rank:               i + 1,
			UID:                c.ID,
			Name:               c.Name(),
			CrownPrice:         c.BidAmount(),
			AmountCents:        amountCents,
			TieBreakMillis:     TieBreakMillis(c),
			HasPaymentMethod:   hasPM,
			MeetsMinimumAmount: ok && amountCents >= s.opts.MinimumAmountCents,
		})
	}
	return out, nil
}
