package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementEventType is the disposition recorded for a charge attempt
type SettlementEventType string

const (
	SettlementEventWin  SettlementEventType = "WIN"
	SettlementEventFail SettlementEventType = "FAIL"
)

// SettlementSource tells whether an event came from the nightly job or the
// manual override.
type SettlementSource string

const (
	SettlementSourceNightly SettlementSource = "nightly"
	SettlementSourceManual  SettlementSource = "manual"
)

// Placeholder uids for run-level events that are not about one candidate.
const (
	EventUIDNone = "none"
	EventUIDAll  = "all"
)

// SettlementEvent is one append-only audit record
type SettlementEvent struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Type            SettlementEventType `bson:"type" json:"type"`
	Source          SettlementSource    `bson:"source" json:"source"`
	UID             string              `bson:"uid" json:"uid"`
	AmountCents     int64               `bson:"amountCents" json:"amountCents"`
	DateKey         string              `bson:"dateKey" json:"dateKey"`
	PaymentIntentID string              `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	StripeStatus    string              `bson:"stripeStatus,omitempty" json:"stripeStatus,omitempty"`
	Error           string              `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
}

// SettlementOutcome is the terminal state of one settlement invocation
type SettlementOutcome string

const (
	OutcomeWon                SettlementOutcome = "won"
	OutcomeAlreadySettled     SettlementOutcome = "alreadySettled"
	OutcomeAlreadySettling    SettlementOutcome = "alreadySettling"
	OutcomeNoCandidates       SettlementOutcome = "no_candidates"
	OutcomeNoActiveCandidates SettlementOutcome = "no_active_candidates"
	OutcomeAllFailed          SettlementOutcome = "all_failed"
)

// DidNothing reports whether the invocation exited at the lock without side
// effects.
func (o SettlementOutcome) DidNothing() bool {
	return o == OutcomeAlreadySettled || o == OutcomeAlreadySettling
}

// SettlementResult summarizes a nightly run
type SettlementResult struct {
	Outcome         SettlementOutcome `json:"outcome"`
	DateKey         string            `json:"dateKey"`
	WinnerUID       string            `json:"winnerUid,omitempty"`
	AmountCents     int64             `json:"amountCents,omitempty"`
	PaymentIntentID string            `json:"paymentIntentId,omitempty"`
	Attempts        int               `json:"attempts"`
}

// AssignResult is returned by a successful manual assignment
type AssignResult struct {
	UID             string `json:"uid"`
	AmountCents     int64  `json:"amountCents"`
	PaymentIntentID string `json:"paymentIntentId"`
	DateKey         string `json:"dateKey"`
}

// RankedCandidate is one row of the ranking preview
type RankedCandidate struct {
	Rank               int     `json:"rank"`
	UID                string  `json:"uid"`
	Name               string  `json:"name,omitempty"`
	CrownPrice         float64 `json:"crownPrice"`
	AmountCents        int64   `json:"amountCents"`
	TieBreakMillis     int64   `json:"tieBreakMillis"`
	HasPaymentMethod   bool    `json:"hasPaymentMethod"`
	MeetsMinimumAmount bool    `json:"meetsMinimumAmount"`
}

// SetupIntentResult is returned to a client starting to vault a card
type SetupIntentResult struct {
	ClientSecret string `json:"clientSecret"`
	CustomerID   string `json:"customerId"`
}

// CardSummary describes the default card after it was set
type CardSummary struct {
	PaymentMethodID string `json:"paymentMethodId"`
	Brand           string `json:"brand"`
	Last4           string `json:"last4"`
}
