// Package payments is the boundary to the card processor. StripeClient talks
// to the Stripe REST API; MockGateway serves local runs and tests.
package payments

import (
	"context"
	"errors"
	"fmt"
)

// StatusSucceeded is the only charge status that counts as paid
const StatusSucceeded = "succeeded"

// ErrNotConfigured is returned when the client has no API key
var ErrNotConfigured = errors.New("payments: gateway not configured")

// ChargeRequest describes an off-session charge that is confirmed immediately
type ChargeRequest struct {
	AmountCents     int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	IdempotencyKey  string
	Description     string
	Metadata        map[string]string
}

// Charge is the processor's view of a payment attempt
type Charge struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount"`
}

// Succeeded reports whether the charge captured funds
func (c *Charge) Succeeded() bool {
	return c != nil && c.Status == StatusSucceeded
}

// PaymentMethod is a stored card
type PaymentMethod struct {
	ID         string
	Brand      string
	Last4      string
	CustomerID string
}

// Customer is a processor-side payment profile
type Customer struct {
	ID string
}

// SetupIntent lets a client vault a card for later off-session use
type SetupIntent struct {
	ID           string
	ClientSecret string
}

// Gateway is the set of processor operations the backend uses
type Gateway interface {
	CreateAndConfirmCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	RetrievePaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
	// SetDefaultPaymentMethod sets the customer's invoice default; an empty
	// paymentMethodID clears it.
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
}

// Error is a failure reported by the processor
type Error struct {
	HTTPStatus  int
	Type        string
	Code        string
	DeclineCode string
	Message     string
	// Set when a charge was created but not completed.
	PaymentIntentID     string
	PaymentIntentStatus string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return fmt.Sprintf("payments: %s (%s)", e.Type, e.Code)
	}
	return fmt.Sprintf("payments: request failed with status %d", e.HTTPStatus)
}

// IsCardError reports whether err is a decline or other card-level refusal
func IsCardError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == "card_error"
}
