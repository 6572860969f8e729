package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ArowuTest/crownbid-backend/internal/metrics"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"golang.org/x/exp/slog"
)

// AssignNow charges one candidate once and crowns them on success. The
// caller must already be authorized as an operator. Nightly locking does not
// apply here.
func (s *SettlementServiceImpl) AssignNow(ctx context.Context, operatorID, candidateKey string, amountOverride *float64) (*models.AssignResult, error) {
	result, err := s.assignNow(ctx, candidateKey, amountOverride)
	if err != nil {
		var aerr *AssignError
		label := "error"
		if errors.As(err, &aerr) {
			label = fmt.Sprintf("rejected_%d", aerr.Status)
		}
		s.metrics.ObserveManualAssign(label)
		slog.Warn("AssignNow: crown not assigned", "error", err, "operator", operatorID, "uid", candidateKey)
		return nil, err
	}
	s.metrics.ObserveManualAssign("won")
	slog.Info("AssignNow: crown assigned", "operator", operatorID, "uid", result.UID, "amountCents", result.AmountCents, "paymentIntentId", result.PaymentIntentID)
	return result, nil
}

func (s *SettlementServiceImpl) assignNow(ctx context.Context, candidateKey string, amountOverride *float64) (*models.AssignResult, error) {
	if candidateKey == "" {
		return nil, badRequest("Missing targetUid")
	}

	candidate, err := s.candidates.FindByID(ctx, candidateKey)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &AssignError{Status: http.StatusNotFound, Reason: "User not found", Err: ErrCandidateNotFound}
		}
		return nil, fmt.Errorf("load candidate %s: %w", candidateKey, err)
	}

	customerID, paymentMethodID, ok := ResolvePaymentRefs(candidate)
	if !ok {
		return nil, badRequest("User missing stripeCustomerId or default payment method id")
	}

	amountCents, ok := ResolveManualAmount(candidate, amountOverride)
	if !ok || amountCents < s.opts.MinimumAmountCents {
		return nil, badRequest(fmt.Sprintf("Invalid or missing crown offer amount (need >= %d cents)", s.opts.MinimumAmountCents))
	}

	dateKey := DateKey(s.clock.Now(), s.opts.Location)
	failure := &models.SettlementEvent{
		Source:      models.SettlementSourceManual,
		UID:         candidate.ID,
		AmountCents: amountCents,
		DateKey:     dateKey,
	}

	charge, err := s.gateway.CreateAndConfirmCharge(ctx, payments.ChargeRequest{
		AmountCents:     amountCents,
		Currency:        s.opts.Currency,
		CustomerID:      customerID,
		PaymentMethodID: paymentMethodID,
		IdempotencyKey:  manualIdempotencyKey(dateKey, candidate.ID, amountCents),
		Description:     fmt.Sprintf("ADMIN Assign Crown (%s)", dateKey),
		Metadata: map[string]string{
			"uid":     candidate.ID,
			"dateKey": dateKey,
			"purpose": "crown_admin_assign",
		},
	})
	if err != nil {
		failure.Error = err.Error()
		aerr := &AssignError{Status: http.StatusBadGateway, Reason: "Payment gateway error", Err: err}
		var perr *payments.Error
		if errors.As(err, &perr) {
			failure.PaymentIntentID = perr.PaymentIntentID
			failure.StripeStatus = perr.PaymentIntentStatus
			aerr.PaymentIntentID = perr.PaymentIntentID
			aerr.StripeStatus = perr.PaymentIntentStatus
		}
		if payments.IsCardError(err) {
			aerr.Status = http.StatusPaymentRequired
			aerr.Reason = "Charge did not succeed"
		}
		s.recordManualFailure(ctx, failure)
		return nil, aerr
	}
	if !charge.Succeeded() {
		failure.Error = "Stripe status: " + charge.Status
		failure.PaymentIntentID = charge.ID
		failure.StripeStatus = charge.Status
		s.recordManualFailure(ctx, failure)
		return nil, &AssignError{
			Status:          http.StatusPaymentRequired,
			Reason:          "Charge did not succeed",
			StripeStatus:    charge.Status,
			PaymentIntentID: charge.ID,
		}
	}

	if err := s.publisher.PublishWin(ctx, candidate, amountCents, charge.ID, dateKey, models.SettlementSourceManual); err != nil {
		failure.Error = "charge succeeded but publishing the crown failed: " + err.Error()
		failure.PaymentIntentID = charge.ID
		failure.StripeStatus = charge.Status
		s.recordManualFailure(ctx, failure)
		return nil, err
	}
	s.events.win(ctx, models.SettlementSourceManual, candidate.ID, amountCents, dateKey, charge.ID)
	s.metrics.ObserveAttempt(string(models.SettlementSourceManual), metrics.AttemptWin)

	return &models.AssignResult{
		UID:             candidate.ID,
		AmountCents:     amountCents,
		PaymentIntentID: charge.ID,
		DateKey:         dateKey,
	}, nil
}

func (s *SettlementServiceImpl) recordManualFailure(ctx context.Context, event *models.SettlementEvent) {
	s.events.fail(ctx, event)
	s.metrics.ObserveAttempt(string(models.SettlementSourceManual), metrics.AttemptFail)
}
