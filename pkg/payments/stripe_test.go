package payments

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StripeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripeClient("sk_test_123", srv.URL, 5*time.Second)
}

func TestCreateAndConfirmChargeSendsOffSessionForm(t *testing.T) {
	var got url.Values
	var header http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		header = r.Header
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded","amount":1250}`))
	})

	charge, err := client.CreateAndConfirmCharge(context.Background(), ChargeRequest{
		AmountCents:     1250,
		Currency:        "USD",
		CustomerID:      "cus_1",
		PaymentMethodID: "pm_1",
		IdempotencyKey:  "nightly:2026-01-02:u1:1250",
		Description:     "Crown Winner Charge (2026-01-02)",
		Metadata:        map[string]string{"uid": "u1", "purpose": "crown_nightly"},
	})
	require.NoError(t, err)
	assert.True(t, charge.Succeeded())
	assert.Equal(t, "pi_1", charge.ID)

	assert.Equal(t, "1250", got.Get("amount"))
	assert.Equal(t, "usd", got.Get("currency"))
	assert.Equal(t, "true", got.Get("confirm"))
	assert.Equal(t, "true", got.Get("off_session"))
	assert.Equal(t, "u1", got.Get("metadata[uid]"))
	assert.Equal(t, "nightly:2026-01-02:u1:1250", header.Get("Idempotency-Key"))
	assert.Equal(t, "Bearer sk_test_123", header.Get("Authorization"))
}

func TestCreateAndConfirmChargeDecodesCardError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds",
			"message":"Your card has insufficient funds.","payment_intent":{"id":"pi_2","status":"requires_payment_method"}}}`))
	})

	_, err := client.CreateAndConfirmCharge(context.Background(), ChargeRequest{AmountCents: 100, Currency: "usd"})
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusPaymentRequired, perr.HTTPStatus)
	assert.Equal(t, "insufficient_funds", perr.DeclineCode)
	assert.Equal(t, "pi_2", perr.PaymentIntentID)
	assert.Equal(t, "Your card has insufficient funds.", err.Error())
	assert.True(t, IsCardError(err))
}

func TestUndecodableErrorKeepsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	err := client.DetachPaymentMethod(context.Background(), "pm_1")
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadGateway, perr.HTTPStatus)
	assert.False(t, IsCardError(err))
}

func TestRetrievePaymentMethod(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_methods/pm_9", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pm_9","customer":"cus_9","card":{"brand":"mastercard","last4":"4444"}}`))
	})

	pm, err := client.RetrievePaymentMethod(context.Background(), "pm_9")
	require.NoError(t, err)
	assert.Equal(t, &PaymentMethod{ID: "pm_9", Brand: "mastercard", Last4: "4444", CustomerID: "cus_9"}, pm)
}

func TestSetupIntentAndDefaultMethodForms(t *testing.T) {
	requests := map[string]url.Values{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests[r.URL.Path], _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"id":"seti_1","client_secret":"seti_1_secret"}`))
	})
	ctx := context.Background()

	si, err := client.CreateSetupIntent(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "seti_1_secret", si.ClientSecret)
	assert.Equal(t, "off_session", requests["/v1/setup_intents"].Get("usage"))
	assert.Equal(t, "card", requests["/v1/setup_intents"].Get("payment_method_types[]"))

	require.NoError(t, client.SetDefaultPaymentMethod(ctx, "cus_1", ""))
	form := requests["/v1/customers/cus_1"]
	require.Contains(t, form, "invoice_settings[default_payment_method]")
	assert.Empty(t, form.Get("invoice_settings[default_payment_method]"))
}

func TestMissingKeyIsNotConfigured(t *testing.T) {
	client := NewStripeClient("", "", 0)
	_, err := client.CreateCustomer(context.Background(), "a@b.c", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
