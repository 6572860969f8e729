package services

import (
	"context"
	"testing"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories/memory"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentFixture(candidates ...*models.Candidate) (*PaymentMethodServiceImpl, *memory.CandidateRepository, *payments.MockGateway) {
	repo := memory.NewCandidateRepository(candidates...)
	gw := payments.NewMockGateway()
	return NewPaymentMethodService(repo, gw), repo, gw
}

func TestCreateSetupIntentCreatesCustomerOnce(t *testing.T) {
	svc, repo, _ := newPaymentFixture(&models.Candidate{ID: "u1", Email: "u1@example.com"})

	first, err := svc.CreateSetupIntent(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ClientSecret)
	assert.NotEmpty(t, first.CustomerID)

	stored, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, first.CustomerID, stored.StripeCustomerID)

	second, err := svc.CreateSetupIntent(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.NotEqual(t, first.ClientSecret, second.ClientSecret)
}

func TestCreateSetupIntentUnknownCandidate(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	_, err := svc.CreateSetupIntent(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
}

func TestAttachMethod(t *testing.T) {
	svc, _, gw := newPaymentFixture(&models.Candidate{ID: "u1", StripeCustomerID: "cus_1"})

	require.NoError(t, svc.AttachMethod(context.Background(), "u1", "pm_card"))
	assert.Equal(t, "pm_card", gw.DefaultPaymentMethod("cus_1"))

	pm, err := gw.RetrievePaymentMethod(context.Background(), "pm_card")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", pm.CustomerID)
}

func TestAttachMethodConflict(t *testing.T) {
	svc, _, gw := newPaymentFixture(&models.Candidate{ID: "u1", StripeCustomerID: "cus_1"})
	gw.AddPaymentMethod(payments.PaymentMethod{ID: "pm_theirs", CustomerID: "cus_other"})

	err := svc.AttachMethod(context.Background(), "u1", "pm_theirs")
	assert.ErrorIs(t, err, ErrPaymentMethodConflict)
	assert.Empty(t, gw.DefaultPaymentMethod("cus_1"))
}

func TestAttachMethodRequiresCustomer(t *testing.T) {
	svc, _, _ := newPaymentFixture(&models.Candidate{ID: "u1"})
	err := svc.AttachMethod(context.Background(), "u1", "pm_card")
	assert.ErrorIs(t, err, ErrNoPaymentProfile)
}

func TestSetDefaultMethodActivatesCandidate(t *testing.T) {
	svc, repo, gw := newPaymentFixture(&models.Candidate{ID: "u1", StripeCustomerID: "cus_1"})
	gw.AddPaymentMethod(payments.PaymentMethod{ID: "pm_mc", Brand: "mastercard", Last4: "4444", CustomerID: "cus_1"})

	card, err := svc.SetDefaultMethod(context.Background(), "u1", "pm_mc")
	require.NoError(t, err)
	assert.Equal(t, &models.CardSummary{PaymentMethodID: "pm_mc", Brand: "mastercard", Last4: "4444"}, card)

	stored, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "pm_mc", stored.StripeDefaultPaymentMethodID)
	assert.Equal(t, "pm_mc", stored.DefaultPaymentMethodID)
	assert.Equal(t, "mastercard", stored.CardBrand)
	assert.Equal(t, "4444", stored.CardLast4)
	assert.Equal(t, "pm_mc", gw.DefaultPaymentMethod("cus_1"))
}

func TestSetDefaultMethodUnknownCard(t *testing.T) {
	svc, _, _ := newPaymentFixture(&models.Candidate{ID: "u1", StripeCustomerID: "cus_1"})
	_, err := svc.SetDefaultMethod(context.Background(), "u1", "card_bogus")
	require.Error(t, err)
	var perr *payments.Error
	assert.ErrorAs(t, err, &perr)
}

func TestDeactivateRemovesCard(t *testing.T) {
	c := bidder("u1", 40)
	c.CardBrand = "visa"
	c.CardLast4 = "4242"
	svc, repo, gw := newPaymentFixture(c)
	require.NoError(t, gw.AttachPaymentMethod(context.Background(), "pm_u1", "cus_u1"))
	require.NoError(t, gw.SetDefaultPaymentMethod(context.Background(), "cus_u1", "pm_u1"))

	require.NoError(t, svc.Deactivate(context.Background(), "u1"))

	stored, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Empty(t, stored.StripeDefaultPaymentMethodID)
	assert.Empty(t, stored.DefaultPaymentMethodID)
	assert.Empty(t, stored.CardLast4)
	assert.Equal(t, "cus_u1", stored.StripeCustomerID)
	assert.Empty(t, gw.DefaultPaymentMethod("cus_u1"))

	pm, err := gw.RetrievePaymentMethod(context.Background(), "pm_u1")
	require.NoError(t, err)
	assert.Empty(t, pm.CustomerID)

	// A deactivated candidate drops out of the ranking.
	ranked := RankCandidates([]*models.Candidate{stored})
	assert.Empty(t, ranked)
}

func TestDetachMethodClearsDefault(t *testing.T) {
	svc, repo, gw := newPaymentFixture(bidder("u1", 40))
	require.NoError(t, gw.AttachPaymentMethod(context.Background(), "pm_u1", "cus_u1"))

	require.NoError(t, svc.DetachMethod(context.Background(), "u1", "pm_u1"))

	stored, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, stored.StripeDefaultPaymentMethodID)
	assert.True(t, stored.IsActive)
}

func TestDetachMethodKeepsOtherDefault(t *testing.T) {
	svc, repo, gw := newPaymentFixture(bidder("u1", 40))
	require.NoError(t, gw.AttachPaymentMethod(context.Background(), "pm_spare", "cus_u1"))

	require.NoError(t, svc.DetachMethod(context.Background(), "u1", "pm_spare"))

	stored, err := repo.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "pm_u1", stored.StripeDefaultPaymentMethodID)
}

func TestDetachMethodRefusesForeignCard(t *testing.T) {
	svc, _, gw := newPaymentFixture(bidder("u1", 40))
	gw.AddPaymentMethod(payments.PaymentMethod{ID: "pm_theirs", CustomerID: "cus_other"})

	err := svc.DetachMethod(context.Background(), "u1", "pm_theirs")
	assert.ErrorIs(t, err, ErrPaymentMethodConflict)
}
