package services

import (
	"math"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/shopspring/decimal"
)

// Candidate documents carry the same fact under several historical field
// names. Each policy below lists the fields in the order they are tried; the
// first usable value wins.

type amountField struct {
	name  string
	cents func(c *models.Candidate) (int64, bool)
}

var nightlyAmountPolicy = []amountField{
	{"crownPrice", dollarsField(func(c *models.Candidate) *float64 { return c.CrownPrice }, true)},
	{"crownPriceCents", centsField(func(c *models.Candidate) *float64 { return c.CrownPriceCents }, true)},
}

var manualAmountPolicy = []amountField{
	{"crownOfferCents", centsField(func(c *models.Candidate) *float64 { return c.CrownOfferCents }, false)},
	{"crownPriceCents", centsField(func(c *models.Candidate) *float64 { return c.CrownPriceCents }, false)},
	{"amountCents", centsField(func(c *models.Candidate) *float64 { return c.AmountCents }, false)},
	{"crownPrice", dollarsField(func(c *models.Candidate) *float64 { return c.CrownPrice }, false)},
	{"amount", dollarsField(func(c *models.Candidate) *float64 { return c.Amount }, false)},
}

var paymentMethodPolicy = []func(c *models.Candidate) string{
	func(c *models.Candidate) string { return c.StripeDefaultPaymentMethodID },
	func(c *models.Candidate) string { return c.DefaultPaymentMethodID },
}

var tieBreakPolicy = []func(c *models.Candidate) models.Millis{
	func(c *models.Candidate) models.Millis { return c.CrownPriceUpdatedAt },
	func(c *models.Candidate) models.Millis { return c.CrownOfferUpdatedAt },
	func(c *models.Candidate) models.Millis { return c.UpdatedAt },
	func(c *models.Candidate) models.Millis { return c.CreatedAt },
}

// ResolveNightlyAmount returns the charge in cents for a nightly run: the
// dollar bid, falling back to a stored cents value.
func ResolveNightlyAmount(c *models.Candidate) (int64, bool) {
	return resolveAmount(c, nightlyAmountPolicy)
}

// ResolveManualAmount returns the charge in cents for a manual assignment.
// An explicit override wins; otherwise cents fields are preferred over
// dollar fields.
func ResolveManualAmount(c *models.Candidate, override *float64) (int64, bool) {
	if override != nil && !math.IsNaN(*override) && !math.IsInf(*override, 0) {
		return decimal.NewFromFloat(*override).Round(0).IntPart(), true
	}
	return resolveAmount(c, manualAmountPolicy)
}

func resolveAmount(c *models.Candidate, policy []amountField) (int64, bool) {
	for _, field := range policy {
		if cents, ok := field.cents(c); ok {
			return cents, true
		}
	}
	return 0, false
}

// ResolvePaymentRefs returns the customer and payment method to charge
func ResolvePaymentRefs(c *models.Candidate) (customerID, paymentMethodID string, ok bool) {
	for _, field := range paymentMethodPolicy {
		if v := field(c); v != "" {
			paymentMethodID = v
			break
		}
	}
	customerID = c.StripeCustomerID
	return customerID, paymentMethodID, customerID != "" && paymentMethodID != ""
}

// TieBreakMillis returns the first non-zero timestamp of the tie-break
// policy, or 0.
func TieBreakMillis(c *models.Candidate) int64 {
	for _, field := range tieBreakPolicy {
		if v := field(c); v != 0 {
			return int64(v)
		}
	}
	return 0
}

// DollarsToCents converts a major-unit amount to minor units, rounding half
// away from zero.
func DollarsToCents(dollars float64) (int64, bool) {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0, false
	}
	return decimal.NewFromFloat(dollars).Shift(2).Round(0).IntPart(), true
}

// dollarsField reads a dollar amount. With allowZero a present zero is
// returned as is; otherwise zero counts as unset.
func dollarsField(get func(*models.Candidate) *float64, allowZero bool) func(*models.Candidate) (int64, bool) {
	return func(c *models.Candidate) (int64, bool) {
		v := get(c)
		if v == nil || (*v == 0 && !allowZero) {
			return 0, false
		}
		return DollarsToCents(*v)
	}
}

func centsField(get func(*models.Candidate) *float64, allowZero bool) func(*models.Candidate) (int64, bool) {
	return func(c *models.Candidate) (int64, bool) {
		v := get(c)
		if v == nil || (*v == 0 && !allowZero) || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return 0, false
		}
		return decimal.NewFromFloat(*v).Round(0).IntPart(), true
	}
}
