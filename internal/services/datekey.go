package services

import (
	"fmt"
	"time"
)

const dateKeyLayout = "2006-01-02"

// DateKey returns the civil day of t in loc as YYYY-MM-DD
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateKeyLayout)
}

// Idempotency keys are scoped per namespace so a manual assignment never
// collides with the nightly charge for the same day, candidate and amount.
func nightlyIdempotencyKey(dateKey, uid string, amountCents int64) string {
	return fmt.Sprintf("nightly:%s:%s:%d", dateKey, uid, amountCents)
}

func manualIdempotencyKey(dateKey, uid string, amountCents int64) string {
	return fmt.Sprintf("admin-assign:%s:%s:%d", dateKey, uid, amountCents)
}
