package models

// Candidate represents a user bidding for the crown. Bid and payment fields
// are written by the profile and card-vaulting flows; settlement only reads
// them.
type Candidate struct {
	ID string `bson:"_id" json:"uid"`

	// CrownPrice is the bid in dollars and the field the store ranks on.
	CrownPrice *float64 `bson:"crownPrice,omitempty" json:"crownPrice,omitempty"`
	// Legacy amount fields some clients wrote instead of crownPrice.
	CrownPriceCents *float64 `bson:"crownPriceCents,omitempty" json:"crownPriceCents,omitempty"`
	CrownOfferCents *float64 `bson:"crownOfferCents,omitempty" json:"crownOfferCents,omitempty"`
	AmountCents     *float64 `bson:"amountCents,omitempty" json:"amountCents,omitempty"`
	Amount          *float64 `bson:"amount,omitempty" json:"amount,omitempty"`

	CrownPriceUpdatedAt Millis `bson:"crownPriceUpdatedAt,omitempty" json:"crownPriceUpdatedAt,omitempty"`
	CrownOfferUpdatedAt Millis `bson:"crownOfferUpdatedAt,omitempty" json:"crownOfferUpdatedAt,omitempty"`
	UpdatedAt           Millis `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	CreatedAt           Millis `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	// PriceJoinedAt is when the current bid was first entered.
	PriceJoinedAt Millis `bson:"priceJoinedAt,omitempty" json:"priceJoinedAt,omitempty"`

	IsActive bool `bson:"isActive" json:"isActive"`

	StripeCustomerID             string `bson:"stripeCustomerId,omitempty" json:"-"`
	StripeDefaultPaymentMethodID string `bson:"stripeDefaultPaymentMethodId,omitempty" json:"-"`
	DefaultPaymentMethodID       string `bson:"defaultPaymentMethodId,omitempty" json:"-"`
	CardBrand                    string `bson:"cardBrand,omitempty" json:"cardBrand,omitempty"`
	CardLast4                    string `bson:"cardLast4,omitempty" json:"cardLast4,omitempty"`

	FullName    string `bson:"fullName,omitempty" json:"fullName,omitempty"`
	DisplayName string `bson:"displayName,omitempty" json:"displayName,omitempty"`
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	Bio         string `bson:"bio,omitempty" json:"bio,omitempty"`
	PhotoURL    string `bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
}

// BidAmount returns the ranked bid in dollars, 0 when unset.
func (c *Candidate) BidAmount() float64 {
	if c.CrownPrice == nil {
		return 0
	}
	return *c.CrownPrice
}

// Name returns the public display name.
func (c *Candidate) Name() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.DisplayName
}

// PaymentProfileUpdate is a partial write to a candidate's payment fields.
// Nil fields are left untouched.
type PaymentProfileUpdate struct {
	StripeCustomerID       *string
	DefaultPaymentMethodID *string
	CardBrand              *string
	CardLast4              *string
	IsActive               *bool
	// ClearPaymentMethod removes both payment-method references and the
	// card display fields.
	ClearPaymentMethod bool
}

// Apply writes the update onto c.
func (u *PaymentProfileUpdate) Apply(c *Candidate) {
	if u.StripeCustomerID != nil {
		c.StripeCustomerID = *u.StripeCustomerID
	}
	if u.ClearPaymentMethod {
		c.StripeDefaultPaymentMethodID = ""
		c.DefaultPaymentMethodID = ""
		c.CardBrand = ""
		c.CardLast4 = ""
	}
	if u.DefaultPaymentMethodID != nil {
		c.StripeDefaultPaymentMethodID = *u.DefaultPaymentMethodID
		c.DefaultPaymentMethodID = *u.DefaultPaymentMethodID
	}
	if u.CardBrand != nil {
		c.CardBrand = *u.CardBrand
	}
	if u.CardLast4 != nil {
		c.CardLast4 = *u.CardLast4
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
}
