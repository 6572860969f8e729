package models

import "time"

// QueueEntry is the public projection of a candidate's bid. It carries no
// contact or payment data and is safe to list to any visitor.
type QueueEntry struct {
	UID           string    `bson:"_id" json:"uid"`
	CrownPrice    float64   `bson:"crownPrice" json:"crownPrice"`
	IsActive      bool      `bson:"isActive" json:"isActive"`
	PriceJoinedAt Millis    `bson:"priceJoinedAt" json:"priceJoinedAt,omitempty"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// QueueEntryFromCandidate projects c onto its public queue entry
func QueueEntryFromCandidate(c *Candidate, now time.Time) *QueueEntry {
	return &QueueEntry{
		UID:           c.ID,
		CrownPrice:    c.BidAmount(),
		IsActive:      c.IsActive,
		PriceJoinedAt: c.PriceJoinedAt,
		UpdatedAt:     now,
	}
}
