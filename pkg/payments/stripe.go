package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Stripe API root
const DefaultBaseURL = "https://api.stripe.com"

var _ Gateway = (*StripeClient)(nil)

// StripeClient is a minimal form-encoded client for the Stripe REST API
type StripeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewStripeClient creates a new Stripe client
func NewStripeClient(apiKey, baseURL string, timeout time.Duration) *StripeClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StripeClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

type stripePaymentMethod struct {
	ID       string  `json:"id"`
	Customer *string `json:"customer"`
	Card     *struct {
		Brand string `json:"brand"`
		Last4 string `json:"last4"`
	} `json:"card"`
}

type stripeObject struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeErrorResponse struct {
	Error struct {
		Type          string               `json:"type"`
		Code          string               `json:"code"`
		DeclineCode   string               `json:"decline_code"`
		Message       string               `json:"message"`
		PaymentIntent *stripePaymentIntent `json:"payment_intent"`
	} `json:"error"`
}

// CreateAndConfirmCharge creates a PaymentIntent with confirm and off_session
// set, so the charge is attempted without the customer present.
func (c *StripeClient) CreateAndConfirmCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("customer", req.CustomerID)
	values.Set("payment_method", req.PaymentMethodID)
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	if req.Description != "" {
		values.Set("description", req.Description)
	}
	setMetadata(values, req.Metadata)

	var intent stripePaymentIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", values, req.IdempotencyKey, &intent); err != nil {
		return nil, err
	}
	return &Charge{ID: intent.ID, Status: intent.Status, AmountCents: intent.Amount}, nil
}

// RetrievePaymentMethod fetches a stored card
func (c *StripeClient) RetrievePaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	var pm stripePaymentMethod
	if err := c.do(ctx, http.MethodGet, "/v1/payment_methods/"+url.PathEscape(paymentMethodID), nil, "", &pm); err != nil {
		return nil, err
	}
	out := &PaymentMethod{ID: pm.ID}
	if pm.Customer != nil {
		out.CustomerID = *pm.Customer
	}
	if pm.Card != nil {
		out.Brand = pm.Card.Brand
		out.Last4 = pm.Card.Last4
	}
	return out, nil
}

// AttachPaymentMethod attaches a card to a customer
func (c *StripeClient) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	values := url.Values{}
	values.Set("customer", customerID)
	return c.do(ctx, http.MethodPost, "/v1/payment_methods/"+url.PathEscape(paymentMethodID)+"/attach", values, "", nil)
}

// DetachPaymentMethod removes a card from its customer
func (c *StripeClient) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	return c.do(ctx, http.MethodPost, "/v1/payment_methods/"+url.PathEscape(paymentMethodID)+"/detach", url.Values{}, "", nil)
}

// SetDefaultPaymentMethod updates invoice_settings.default_payment_method
func (c *StripeClient) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	values := url.Values{}
	values.Set("invoice_settings[default_payment_method]", paymentMethodID)
	return c.do(ctx, http.MethodPost, "/v1/customers/"+url.PathEscape(customerID), values, "", nil)
}

// CreateCustomer creates a customer
func (c *StripeClient) CreateCustomer(ctx context.Context, email string, metadata map[string]string) (*Customer, error) {
	values := url.Values{}
	if email != "" {
		values.Set("email", email)
	}
	setMetadata(values, metadata)

	var obj stripeObject
	if err := c.do(ctx, http.MethodPost, "/v1/customers", values, "", &obj); err != nil {
		return nil, err
	}
	return &Customer{ID: obj.ID}, nil
}

// CreateSetupIntent creates an off-session card SetupIntent for customerID
func (c *StripeClient) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	values := url.Values{}
	values.Set("customer", customerID)
	values.Set("payment_method_types[]", "card")
	values.Set("usage", "off_session")

	var obj stripeObject
	if err := c.do(ctx, http.MethodPost, "/v1/setup_intents", values, "", &obj); err != nil {
		return nil, err
	}
	return &SetupIntent{ID: obj.ID, ClientSecret: obj.ClientSecret}, nil
}

func setMetadata(values url.Values, metadata map[string]string) {
	for k, v := range metadata {
		values.Set("metadata["+k+"]", v)
	}
}

func (c *StripeClient) do(ctx context.Context, method, path string, values url.Values, idempotencyKey string, out interface{}) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		if len(values) > 0 {
			endpoint += "?" + values.Encode()
		}
	} else if values != nil {
		body = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("payments: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("payments: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	perr := &Error{HTTPStatus: resp.StatusCode}
	var envelope stripeErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return perr
	}
	perr.Type = envelope.Error.Type
	perr.Code = envelope.Error.Code
	perr.DeclineCode = envelope.Error.DeclineCode
	perr.Message = strings.TrimSpace(envelope.Error.Message)
	if pi := envelope.Error.PaymentIntent; pi != nil {
		perr.PaymentIntentID = pi.ID
		perr.PaymentIntentStatus = pi.Status
	}
	return perr
}
