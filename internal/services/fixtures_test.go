package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories/memory"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"github.com/stretchr/testify/require"
)

// 00:05 in Chicago on 2026-01-15.
var settleTime = time.Date(2026, 1, 15, 6, 5, 0, 0, time.UTC)

const settleDay = "2026-01-15"

type fixture struct {
	candidates *memory.CandidateRepository
	status     *memory.CrownStatusRepository
	events     *memory.SettlementEventRepository
	gateway    *payments.MockGateway
	clock      *clock.FakeClock
	svc        *SettlementServiceImpl
}

func newFixture(t *testing.T, candidates ...*models.Candidate) *fixture {
	t.Helper()
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	f := &fixture{
		candidates: memory.NewCandidateRepository(candidates...),
		status:     memory.NewCrownStatusRepository(),
		events:     memory.NewSettlementEventRepository(),
		gateway:    payments.NewMockGateway(),
		clock:      clock.NewFakeClock(settleTime),
	}
	f.svc = NewSettlementService(f.candidates, f.status, f.events, f.gateway, nil, f.clock, nil, SettlementOptions{
		Location:           chicago,
		Currency:           "usd",
		MinimumAmountCents: 50,
		CandidateLimit:     100,
		LockStaleAfter:     10 * time.Minute,
	})
	return f
}

func (f *fixture) crown(t *testing.T) *models.CrownStatus {
	t.Helper()
	s, err := f.status.Get(context.Background())
	require.NoError(t, err)
	return s
}

func (f *fixture) eventsOf(typ models.SettlementEventType) []models.SettlementEvent {
	var out []models.SettlementEvent
	for _, e := range f.events.All() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func dollars(v float64) *float64 { return &v }

// bidder builds an active, chargeable candidate.
func bidder(id string, bid float64) *models.Candidate {
	return &models.Candidate{
		ID:                           id,
		CrownPrice:                   dollars(bid),
		IsActive:                     true,
		StripeCustomerID:             "cus_" + id,
		StripeDefaultPaymentMethodID: "pm_" + id,
		FullName:                     "Name " + id,
	}
}

// failingCandidates fails every query after delegating nothing.
type failingCandidates struct {
	*memory.CandidateRepository
	err error
}

func (f failingCandidates) FindTopBidders(context.Context, int) ([]*models.Candidate, error) {
	return nil, f.err
}

var errStoreDown = errors.New("store unavailable")
