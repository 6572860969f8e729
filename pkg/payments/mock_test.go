package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGatewayReplaysIdempotencyKey(t *testing.T) {
	m := NewMockGateway()
	req := ChargeRequest{AmountCents: 500, PaymentMethodID: "pm_1", IdempotencyKey: "k1"}

	first, err := m.CreateAndConfirmCharge(context.Background(), req)
	require.NoError(t, err)
	second, err := m.CreateAndConfirmCharge(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, m.Charges(), 2)
}

func TestMockGatewayScriptedOutcomes(t *testing.T) {
	m := NewMockGateway()
	m.Script("pm_declined", MockOutcome{Err: DeclineError("")})
	m.Script("pm_3ds", MockOutcome{Status: "requires_action"})
	ctx := context.Background()

	_, err := m.CreateAndConfirmCharge(ctx, ChargeRequest{PaymentMethodID: "pm_declined"})
	assert.True(t, IsCardError(err))

	charge, err := m.CreateAndConfirmCharge(ctx, ChargeRequest{PaymentMethodID: "pm_3ds"})
	require.NoError(t, err)
	assert.False(t, charge.Succeeded())
}

func TestMockGatewayAttachAndDetach(t *testing.T) {
	m := NewMockGateway()
	ctx := context.Background()

	require.NoError(t, m.AttachPaymentMethod(ctx, "pm_1", "cus_1"))
	pm, err := m.RetrievePaymentMethod(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", pm.CustomerID)

	require.NoError(t, m.DetachPaymentMethod(ctx, "pm_1"))
	pm, err = m.RetrievePaymentMethod(ctx, "pm_1")
	require.NoError(t, err)
	assert.Empty(t, pm.CustomerID)

	_, err = m.RetrievePaymentMethod(ctx, "bogus")
	assert.Error(t, err)
}
