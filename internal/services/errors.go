package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Per-candidate failure reasons recorded on FAIL events
const (
	ReasonInvalidAmount        = "invalid amount"
	ReasonMissingPaymentMethod = "missing payment method"
	ReasonNoCandidates         = "no candidates with a crown price"
	ReasonNoActiveCandidates   = "no active candidates"
	ReasonAllFailed            = "all candidates failed payment"
)

var (
	// ErrCandidateNotFound is returned when a candidate key does not exist
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrPaymentMethodConflict is returned when a card belongs to another customer
	ErrPaymentMethodConflict = errors.New("payment method is attached to a different customer")
	// ErrNoPaymentProfile is returned when a candidate has no processor customer
	ErrNoPaymentProfile = errors.New("candidate has no payment customer")
)

// AssignError is a rejected or failed manual assignment. Status is the
// HTTP status the failure maps to.
type AssignError struct {
	Status          int
	Reason          string
	StripeStatus    string
	PaymentIntentID string
	Err             error
}

func (e *AssignError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AssignError) Unwrap() error { return e.Err }

func badRequest(reason string) *AssignError {
	return &AssignError{Status: http.StatusBadRequest, Reason: reason}
}
