package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PaymentMethodServiceImpl implements PaymentMethodService
var _ PaymentMethodService = (*PaymentMethodServiceImpl)(nil)

// customerSource tags customers created by this backend
const customerSource = "crownbid-backend"

// PaymentMethodServiceImpl vaults cards so candidates can be charged off
// session. It is the only writer of the candidate payment fields.
type PaymentMethodServiceImpl struct {
	candidates repositories.CandidateRepository
	gateway    payments.Gateway
}

// NewPaymentMethodService creates a new PaymentMethodServiceImpl
func NewPaymentMethodService(candidates repositories.CandidateRepository, gateway payments.Gateway) *PaymentMethodServiceImpl {
	return &PaymentMethodServiceImpl{candidates: candidates, gateway: gateway}
}

// CreateSetupIntent creates the processor customer on first use and returns
// a SetupIntent secret for the client
func (s *PaymentMethodServiceImpl) CreateSetupIntent(ctx context.Context, uid, email string) (*models.SetupIntentResult, error) {
	candidate, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	customerID := candidate.StripeCustomerID
	if customerID == "" {
		if email == "" {
			email = candidate.Email
		}
		customer, err := s.gateway.CreateCustomer(ctx, email, map[string]string{
			"source": customerSource,
			"uid":    uid,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment customer: %w", err)
		}
		customerID = customer.ID
		if err := s.candidates.UpdatePaymentProfile(ctx, uid, &models.PaymentProfileUpdate{StripeCustomerID: &customerID}); err != nil {
			return nil, fmt.Errorf("save payment customer: %w", err)
		}
		slog.Info("Payment customer created", "uid", uid, "customerId", customerID)
	}

	intent, err := s.gateway.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}
	if intent.ClientSecret == "" {
		return nil, errors.New("create setup intent: processor returned no client secret")
	}
	return &models.SetupIntentResult{ClientSecret: intent.ClientSecret, CustomerID: customerID}, nil
}

// AttachMethod attaches a card to the candidate's customer and makes it the
// customer's invoice default
func (s *PaymentMethodServiceImpl) AttachMethod(ctx context.Context, uid, paymentMethodID string) error {
	candidate, err := s.load(ctx, uid)
	if err != nil {
		return err
	}
	customerID := candidate.StripeCustomerID
	if customerID == "" {
		return ErrNoPaymentProfile
	}

	pm, err := s.gateway.RetrievePaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return fmt.Errorf("retrieve payment method: %w", err)
	}
	if pm.CustomerID != "" && pm.CustomerID != customerID {
		return ErrPaymentMethodConflict
	}
	if pm.CustomerID == "" {
		if err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, customerID); err != nil {
			return fmt.Errorf("attach payment method: %w", err)
		}
	}
	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return fmt.Errorf("set customer default payment method: %w", err)
	}
	return nil
}

// SetDefaultMethod records the card on the candidate and marks them active
func (s *PaymentMethodServiceImpl) SetDefaultMethod(ctx context.Context, uid, paymentMethodID string) (*models.CardSummary, error) {
	candidate, err := s.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	pm, err := s.gateway.RetrievePaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment method: %w", err)
	}
	if candidate.StripeCustomerID != "" {
		if err := s.gateway.SetDefaultPaymentMethod(ctx, candidate.StripeCustomerID, paymentMethodID); err != nil {
			return nil, fmt.Errorf("set customer default payment method: %w", err)
		}
	}

	active := true
	update := &models.PaymentProfileUpdate{
		DefaultPaymentMethodID: &paymentMethodID,
		CardBrand:              &pm.Brand,
		CardLast4:              &pm.Last4,
		IsActive:               &active,
	}
	if err := s.candidates.UpdatePaymentProfile(ctx, uid, update); err != nil {
		return nil, fmt.Errorf("save default payment method: %w", err)
	}
	return &models.CardSummary{PaymentMethodID: paymentMethodID, Brand: pm.Brand, Last4: pm.Last4}, nil
}

// DetachMethod removes a card from the candidate's customer. Cards belonging
// to another customer are refused. If it was the candidate's default card the
// candidate is left without one.
func (s *PaymentMethodServiceImpl) DetachMethod(ctx context.Context, uid, paymentMethodID string) error {
	candidate, err := s.load(ctx, uid)
	if err != nil {
		return err
	}

	pm, err := s.gateway.RetrievePaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return fmt.Errorf("retrieve payment method: %w", err)
	}
	if pm.CustomerID != "" && pm.CustomerID != candidate.StripeCustomerID {
		return ErrPaymentMethodConflict
	}
	if err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		return fmt.Errorf("detach payment method: %w", err)
	}

	if _, current, _ := ResolvePaymentRefs(candidate); current == paymentMethodID {
		if err := s.candidates.UpdatePaymentProfile(ctx, uid, &models.PaymentProfileUpdate{ClearPaymentMethod: true}); err != nil {
			return fmt.Errorf("clear default payment method: %w", err)
		}
	}
	return nil
}

// Deactivate removes the candidate's card and takes them out of the running.
// Processor cleanup is best effort; the candidate record is always updated.
func (s *PaymentMethodServiceImpl) Deactivate(ctx context.Context, uid string) error {
	candidate, err := s.load(ctx, uid)
	if err != nil {
		return err
	}

	if candidate.StripeCustomerID != "" {
		if err := s.gateway.SetDefaultPaymentMethod(ctx, candidate.StripeCustomerID, ""); err != nil {
			slog.Warn("Deactivate: failed to clear customer default payment method", "error", err, "uid", uid)
		}
	}
	if _, paymentMethodID, _ := ResolvePaymentRefs(candidate); paymentMethodID != "" {
		if err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
			slog.Warn("Deactivate: failed to detach payment method", "error", err, "uid", uid)
		}
	}

	inactive := false
	update := &models.PaymentProfileUpdate{ClearPaymentMethod: true, IsActive: &inactive}
	if err := s.candidates.UpdatePaymentProfile(ctx, uid, update); err != nil {
		return fmt.Errorf("deactivate candidate: %w", err)
	}
	slog.Info("Candidate deactivated", "uid", uid)
	return nil
}

func (s *PaymentMethodServiceImpl) load(ctx context.Context, uid string) (*models.Candidate, error) {
	candidate, err := s.candidates.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("load candidate %s: %w", uid, err)
	}
	return candidate, nil
}
