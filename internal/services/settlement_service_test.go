package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/metrics"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories/memory"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunNightlyCrownsTopBidder(t *testing.T) {
	f := newFixture(t, bidder("a", 30), bidder("b", 50))

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeWon, result.Outcome)
	assert.Equal(t, settleDay, result.DateKey)
	assert.Equal(t, "b", result.WinnerUID)
	assert.Equal(t, int64(5000), result.AmountCents)
	assert.Equal(t, 1, result.Attempts)

	charges := f.gateway.Charges()
	require.Len(t, charges, 1)
	assert.Equal(t, payments.ChargeRequest{
		AmountCents:     5000,
		Currency:        "usd",
		CustomerID:      "cus_b",
		PaymentMethodID: "pm_b",
		IdempotencyKey:  "nightly:2026-01-15:b:5000",
		Description:     "Crown Winner Charge (2026-01-15)",
		Metadata:        map[string]string{"uid": "b", "dateKey": settleDay, "purpose": "crown_nightly"},
	}, charges[0])

	status := f.crown(t)
	assert.Equal(t, "b", status.ActiveUID)
	assert.Equal(t, int64(5000), status.ActivePriceCents)
	assert.Equal(t, result.PaymentIntentID, status.ActivePaymentIntentID)
	assert.Equal(t, settleDay, status.ActiveDateKey)
	assert.Equal(t, settleDay, status.LastSettledForDate)
	assert.Equal(t, models.AssignedByNightly, status.AssignedBy)
	assert.Equal(t, "Name b", status.ChampionName)
	assert.False(t, status.LockHeld())
	assert.Nil(t, status.SettlementInProgressForDate)

	wins := f.eventsOf(models.SettlementEventWin)
	require.Len(t, wins, 1)
	assert.Equal(t, models.SettlementSourceNightly, wins[0].Source)
	assert.Equal(t, result.PaymentIntentID, wins[0].PaymentIntentID)
	assert.Empty(t, f.eventsOf(models.SettlementEventFail))
}

func TestRunNightlySettlesAtMostOncePerDay(t *testing.T) {
	f := newFixture(t, bidder("a", 20))

	first, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.OutcomeWon, first.Outcome)

	f.clock.Advance(3 * time.Hour)
	second, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadySettled, second.Outcome)
	assert.True(t, second.Outcome.DidNothing())

	assert.Len(t, f.gateway.Charges(), 1)
	assert.Len(t, f.eventsOf(models.SettlementEventWin), 1)
	assert.False(t, f.crown(t).LockHeld())

	f.clock.Advance(24 * time.Hour)
	next, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, next.Outcome)
	assert.Equal(t, "2026-01-16", next.DateKey)
	assert.Len(t, f.gateway.Charges(), 2)
}

func TestRunNightlyFallsBackToNextCandidateOnDecline(t *testing.T) {
	f := newFixture(t, bidder("A", 100), bidder("B", 80))
	f.gateway.Script("pm_A", payments.MockOutcome{Err: payments.DeclineError("pi_declined")})

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeWon, result.Outcome)
	assert.Equal(t, "B", result.WinnerUID)
	assert.Equal(t, 2, result.Attempts)

	charges := f.gateway.Charges()
	require.Len(t, charges, 2)
	assert.Equal(t, "A", charges[0].Metadata["uid"])
	assert.Equal(t, "B", charges[1].Metadata["uid"])

	events := f.events.All()
	require.Len(t, events, 2)
	assert.Equal(t, models.SettlementEventFail, events[0].Type)
	assert.Equal(t, "A", events[0].UID)
	assert.Equal(t, "pi_declined", events[0].PaymentIntentID)
	assert.Equal(t, "requires_payment_method", events[0].StripeStatus)
	assert.Contains(t, events[0].Error, "declined")
	assert.Equal(t, models.SettlementEventWin, events[1].Type)
	assert.Equal(t, "B", events[1].UID)

	assert.Equal(t, "B", f.crown(t).ActiveUID)
}

func TestRunNightlyTreatsNonSucceededStatusAsFailure(t *testing.T) {
	f := newFixture(t, bidder("a", 90), bidder("b", 10))
	f.gateway.Script("pm_a", payments.MockOutcome{Status: "requires_action"})

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", result.WinnerUID)

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 1)
	assert.Equal(t, "Stripe status: requires_action", fails[0].Error)
	assert.Equal(t, "requires_action", fails[0].StripeStatus)
	assert.NotEmpty(t, fails[0].PaymentIntentID)
}

func TestRunNightlyNeverCrownsWithoutSucceededCharge(t *testing.T) {
	f := newFixture(t, bidder("a", 40), bidder("b", 30))
	f.status.Put(models.CrownStatus{ActiveUID: "old", ActiveDateKey: "2026-01-14", LastSettledForDate: "2026-01-14", ChampionName: "Old Champ"})
	f.gateway.Script("pm_a", payments.MockOutcome{Err: payments.DeclineError("pi_a")})
	f.gateway.Script("pm_b", payments.MockOutcome{Err: payments.DeclineError("pi_b")})

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllFailed, result.Outcome)
	assert.Equal(t, 2, result.Attempts)
	assert.Empty(t, result.WinnerUID)

	status := f.crown(t)
	assert.Equal(t, "old", status.ActiveUID)
	assert.Equal(t, "Old Champ", status.ChampionName)
	assert.Equal(t, "2026-01-14", status.LastSettledForDate)
	assert.Equal(t, settleDay, status.LastAttemptForDate)
	assert.Equal(t, string(models.OutcomeAllFailed), status.LastAttemptResult)
	assert.False(t, status.LockHeld())

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 3)
	assert.Equal(t, models.EventUIDAll, fails[2].UID)
	assert.Equal(t, ReasonAllFailed, fails[2].Error)
	assert.Empty(t, f.eventsOf(models.SettlementEventWin))

	// A failed day can be retried once the cards are fixed.
	f.gateway.Script("pm_b", payments.MockOutcome{})
	f.clock.Advance(time.Hour)
	retry, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, retry.Outcome)
	assert.Equal(t, "b", retry.WinnerUID)
	assert.Equal(t, settleDay, f.crown(t).LastSettledForDate)
}

func TestRunNightlySkipsAmountsBelowMinimum(t *testing.T) {
	f := newFixture(t, bidder("cheap", 0.30))

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllFailed, result.Outcome)

	assert.Empty(t, f.gateway.Charges())
	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 2)
	assert.Equal(t, "cheap", fails[0].UID)
	assert.Equal(t, ReasonInvalidAmount, fails[0].Error)
	assert.Equal(t, int64(30), fails[0].AmountCents)
}

func TestRunNightlySkipsCandidatesWithoutPaymentMethod(t *testing.T) {
	noCard := bidder("nocard", 100)
	noCard.StripeDefaultPaymentMethodID = ""
	legacy := bidder("legacy", 60)
	legacy.StripeDefaultPaymentMethodID = ""
	legacy.DefaultPaymentMethodID = "pm_old"
	f := newFixture(t, noCard, legacy)

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "legacy", result.WinnerUID)

	charges := f.gateway.Charges()
	require.Len(t, charges, 1)
	assert.Equal(t, "pm_old", charges[0].PaymentMethodID)

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 1)
	assert.Equal(t, ReasonMissingPaymentMethod, fails[0].Error)
}

func TestRunNightlyTieBreakPrefersEarlierBid(t *testing.T) {
	a := bidder("A", 50)
	a.CrownPriceUpdatedAt = models.MillisFromTime(time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC))
	b := bidder("B", 50)
	b.CrownPriceUpdatedAt = models.MillisFromTime(time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC))
	f := newFixture(t, a, b)

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B", result.WinnerUID)
}

func TestRunNightlyNoCandidates(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNoCandidates, result.Outcome)

	status := f.crown(t)
	assert.Equal(t, string(models.OutcomeNoCandidates), status.LastAttemptResult)
	assert.Empty(t, status.LastSettledForDate)
	assert.False(t, status.LockHeld())

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 1)
	assert.Equal(t, models.EventUIDNone, fails[0].UID)
}

func TestRunNightlyNoActiveCandidates(t *testing.T) {
	off := bidder("off", 100)
	off.IsActive = false
	f := newFixture(t, off)

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNoActiveCandidates, result.Outcome)
	assert.Empty(t, f.gateway.Charges())
}

func TestRunNightlyRespectsFreshLock(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	held := settleTime.Add(-9 * time.Minute)
	day := settleDay
	f.status.Put(models.CrownStatus{SettlementInProgressAt: &held, SettlementInProgressForDate: &day})

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadySettling, result.Outcome)
	assert.Empty(t, f.gateway.Charges())

	status := f.crown(t)
	require.True(t, status.LockHeld())
	assert.True(t, status.SettlementInProgressAt.Equal(held), "a skipped run must not touch the lock")
}

func TestRunNightlyTakesOverStaleLock(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	held := settleTime.Add(-11 * time.Minute)
	day := settleDay
	f.status.Put(models.CrownStatus{SettlementInProgressAt: &held, SettlementInProgressForDate: &day})

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, result.Outcome)
	assert.False(t, f.crown(t).LockHeld())
}

func TestRunNightlyConcurrentRunsChargeOnce(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	gw := &blockingGateway{MockGateway: f.gateway, started: make(chan struct{}), release: make(chan struct{})}
	f.svc.gateway = gw

	type outcome struct {
		result *models.SettlementResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := f.svc.RunNightly(context.Background())
		done <- outcome{r, err}
	}()

	<-gw.started
	second, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadySettling, second.Outcome)

	close(gw.release)
	first := <-done
	require.NoError(t, first.err)
	assert.Equal(t, models.OutcomeWon, first.result.Outcome)
	assert.Len(t, f.gateway.Charges(), 1)
}

func TestRunNightlyRetryReusesIdempotencyKey(t *testing.T) {
	f := newFixture(t, bidder("a", 25))

	first, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)

	// Simulate a crash between charge and publish: the day is not marked
	// settled, so the next run charges the same candidate again.
	f.status.Put(models.CrownStatus{})
	f.clock.Advance(20 * time.Minute)
	second, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)

	charges := f.gateway.Charges()
	require.Len(t, charges, 2)
	assert.Equal(t, charges[0].IdempotencyKey, charges[1].IdempotencyKey)
	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
}

func TestRunNightlyReleasesLockOnStoreError(t *testing.T) {
	f := newFixture(t)
	f.svc.candidates = failingCandidates{CandidateRepository: f.candidates, err: errStoreDown}

	result, err := f.svc.RunNightly(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errStoreDown)

	status := f.crown(t)
	assert.False(t, status.LockHeld())
	assert.Empty(t, status.LastSettledForDate)
}

func TestRunNightlyReleasesLockOnPanic(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	f.svc.gateway = panickingGateway{f.gateway}

	result, err := f.svc.RunNightly(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, f.crown(t).LockHeld())
}

func TestRunNightlyOutlivesCallerCancellation(t *testing.T) {
	f := newFixture(t, bidder("a", 100), bidder("b", 80))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.gateway = &cancellingGateway{MockGateway: f.gateway, cancel: cancel, cancelOn: "pm_a"}

	result, err := f.svc.RunNightly(ctx)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Equal(t, models.OutcomeWon, result.Outcome)
	assert.Equal(t, "b", result.WinnerUID)
	assert.Equal(t, 2, result.Attempts)

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 1)
	assert.Equal(t, "a", fails[0].UID)
	assert.Contains(t, fails[0].Error, context.Canceled.Error())

	crown := f.crown(t)
	assert.Equal(t, "b", crown.ActiveUID)
	assert.False(t, crown.LockHeld())
}

func TestRunNightlyRecordsAttemptWhenAllFailAfterCancellation(t *testing.T) {
	f := newFixture(t, bidder("a", 100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.gateway = &cancellingGateway{MockGateway: f.gateway, cancel: cancel, cancelOn: "pm_a"}

	result, err := f.svc.RunNightly(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllFailed, result.Outcome)

	crown := f.crown(t)
	assert.Equal(t, settleDay, crown.LastAttemptForDate)
	assert.False(t, crown.LockHeld())
}

func TestRunNightlyCountsPublishFailureAsFailedAttempt(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	reg := prometheus.NewRegistry()
	m := metrics.NewSettlementMetrics(reg)
	f.svc.metrics = m
	f.svc.publisher = NewOutcomePublisher(f.candidates, failingMerge{f.status}, nil, f.clock, m)

	_, err := f.svc.RunNightly(context.Background())
	require.ErrorIs(t, err, errStoreDown)

	fails := f.eventsOf(models.SettlementEventFail)
	require.Len(t, fails, 1)
	assert.Contains(t, fails[0].Error, "charge succeeded but publishing the crown failed")

	expected := `
# HELP crown_charge_attempts_total Per-candidate charge attempts by source and result.
# TYPE crown_charge_attempts_total counter
crown_charge_attempts_total{result="fail",source="nightly"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "crown_charge_attempts_total"))
	assert.False(t, f.crown(t).LockHeld())
}

func TestForceUnlockClearsLock(t *testing.T) {
	f := newFixture(t, bidder("a", 20))
	held := settleTime.Add(-time.Minute)
	day := settleDay
	f.status.Put(models.CrownStatus{SettlementInProgressAt: &held, SettlementInProgressForDate: &day})

	dateKey, err := f.svc.ForceUnlock(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, settleDay, dateKey)
	assert.False(t, f.crown(t).LockHeld())

	result, err := f.svc.RunNightly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWon, result.Outcome)
}

func TestPreviewRanking(t *testing.T) {
	noCard := bidder("nocard", 70)
	noCard.StripeCustomerID = ""
	off := bidder("off", 500)
	off.IsActive = false
	f := newFixture(t, bidder("a", 80), noCard, bidder("tiny", 0.25), off)

	ranked, err := f.svc.PreviewRanking(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, models.RankedCandidate{Rank: 1, UID: "a", Name: "Name a", CrownPrice: 80, AmountCents: 8000, HasPaymentMethod: true, MeetsMinimumAmount: true}, *ranked[0])
	assert.Equal(t, "nocard", ranked[1].UID)
	assert.False(t, ranked[1].HasPaymentMethod)
	assert.Equal(t, "tiny", ranked[2].UID)
	assert.False(t, ranked[2].MeetsMinimumAmount)
	assert.Empty(t, f.gateway.Charges())
}

// blockingGateway holds the first charge until release is closed
type blockingGateway struct {
	*payments.MockGateway
	started chan struct{}
	release chan struct{}
}

func (g *blockingGateway) CreateAndConfirmCharge(ctx context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	close(g.started)
	<-g.release
	return g.MockGateway.CreateAndConfirmCharge(ctx, req)
}

// cancellingGateway cancels the caller's context while charging cancelOn and
// fails that charge the way an aborted request would. Later charges fail only
// if their own context is done.
type cancellingGateway struct {
	*payments.MockGateway
	cancel   context.CancelFunc
	cancelOn string
}

func (g *cancellingGateway) CreateAndConfirmCharge(ctx context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	if req.PaymentMethodID == g.cancelOn {
		g.cancel()
		return nil, fmt.Errorf("post payment intent: %w", context.Canceled)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.MockGateway.CreateAndConfirmCharge(ctx, req)
}

// failingMerge rejects every write outside a transaction
type failingMerge struct {
	*memory.CrownStatusRepository
}

func (failingMerge) Merge(context.Context, *models.CrownStatusUpdate, time.Time) error {
	return errStoreDown
}

type panickingGateway struct {
	*payments.MockGateway
}

func (panickingGateway) CreateAndConfirmCharge(context.Context, payments.ChargeRequest) (*payments.Charge, error) {
	panic("processor exploded")
}
