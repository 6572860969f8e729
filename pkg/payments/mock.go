package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var _ Gateway = (*MockGateway)(nil)

// MockOutcome scripts the result of charging one payment method
type MockOutcome struct {
	Status string
	Err    error
}

// MockGateway is an in-process processor. Charges succeed unless an outcome
// is scripted for the payment method, and repeated idempotency keys return the
// first result.
type MockGateway struct {
	mu sync.Mutex

	Outcomes map[string]MockOutcome

	charges        []ChargeRequest
	byKey          map[string]*Charge
	paymentMethods map[string]*PaymentMethod
	defaults       map[string]string
}

// NewMockGateway creates a MockGateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Outcomes:       make(map[string]MockOutcome),
		byKey:          make(map[string]*Charge),
		paymentMethods: make(map[string]*PaymentMethod),
		defaults:       make(map[string]string),
	}
}

// DeclineError builds the error a card decline produces
func DeclineError(paymentIntentID string) *Error {
	return &Error{
		HTTPStatus:          402,
		Type:                "card_error",
		Code:                "card_declined",
		DeclineCode:         "generic_decline",
		Message:             "Your card was declined.",
		PaymentIntentID:     paymentIntentID,
		PaymentIntentStatus: "requires_payment_method",
	}
}

// Script sets the outcome for charges against paymentMethodID
func (m *MockGateway) Script(paymentMethodID string, outcome MockOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes[paymentMethodID] = outcome
}

// AddPaymentMethod registers a card so it can be retrieved and attached
func (m *MockGateway) AddPaymentMethod(pm PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentMethods[pm.ID] = &pm
}

// Charges returns every charge request received, including idempotent replays
func (m *MockGateway) Charges() []ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChargeRequest(nil), m.charges...)
}

// DefaultPaymentMethod returns the customer's default card
func (m *MockGateway) DefaultPaymentMethod(customerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults[customerID]
}

// CreateAndConfirmCharge records req and resolves it from the script
func (m *MockGateway) CreateAndConfirmCharge(_ context.Context, req ChargeRequest) (*Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = append(m.charges, req)

	if prior, ok := m.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		c := *prior
		return &c, nil
	}

	id := "pi_mock_" + shortID()
	outcome, ok := m.Outcomes[req.PaymentMethodID]
	if ok && outcome.Err != nil {
		return nil, outcome.Err
	}
	status := StatusSucceeded
	if ok && outcome.Status != "" {
		status = outcome.Status
	}
	charge := &Charge{ID: id, Status: status, AmountCents: req.AmountCents}
	if req.IdempotencyKey != "" {
		m.byKey[req.IdempotencyKey] = charge
	}
	c := *charge
	return &c, nil
}

// RetrievePaymentMethod returns a registered card, or a synthetic visa
func (m *MockGateway) RetrievePaymentMethod(_ context.Context, paymentMethodID string) (*PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.paymentMethods[paymentMethodID]
	if !ok {
		if !strings.HasPrefix(paymentMethodID, "pm_") {
			return nil, &Error{HTTPStatus: 404, Type: "invalid_request_error", Code: "resource_missing",
				Message: fmt.Sprintf("No such PaymentMethod: '%s'", paymentMethodID)}
		}
		pm = &PaymentMethod{ID: paymentMethodID, Brand: "visa", Last4: "4242"}
		m.paymentMethods[paymentMethodID] = pm
	}
	out := *pm
	return &out, nil
}

// AttachPaymentMethod attaches a card to a customer
func (m *MockGateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	if _, err := m.RetrievePaymentMethod(ctx, paymentMethodID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentMethods[paymentMethodID].CustomerID = customerID
	return nil
}

// DetachPaymentMethod clears the card's customer
func (m *MockGateway) DetachPaymentMethod(_ context.Context, paymentMethodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm, ok := m.paymentMethods[paymentMethodID]; ok {
		pm.CustomerID = ""
	}
	return nil
}

// SetDefaultPaymentMethod records the customer's default card
func (m *MockGateway) SetDefaultPaymentMethod(_ context.Context, customerID, paymentMethodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[customerID] = paymentMethodID
	return nil
}

// CreateCustomer returns a fresh customer id
func (m *MockGateway) CreateCustomer(context.Context, string, map[string]string) (*Customer, error) {
	return &Customer{ID: "cus_mock_" + shortID()}, nil
}

// CreateSetupIntent returns a fresh setup intent
func (m *MockGateway) CreateSetupIntent(context.Context, string) (*SetupIntent, error) {
	id := "seti_mock_" + shortID()
	return &SetupIntent{ID: id, ClientSecret: id + "_secret_" + shortID()}, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
