package services

import (
	"context"

	"github.com/ArowuTest/crownbid-backend/internal/clock"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// eventRecorder appends to the audit log. Write failures are logged and
// swallowed so the log can never abort a settlement.
type eventRecorder struct {
	repo  repositories.SettlementEventRepository
	clock clock.Clock
}

func (r *eventRecorder) win(ctx context.Context, source models.SettlementSource, uid string, amountCents int64, dateKey, chargeRef string) {
	r.record(ctx, &models.SettlementEvent{
		Type:            models.SettlementEventWin,
		Source:          source,
		UID:             uid,
		AmountCents:     amountCents,
		DateKey:         dateKey,
		PaymentIntentID: chargeRef,
		StripeStatus:    "succeeded",
	})
}

func (r *eventRecorder) fail(ctx context.Context, event *models.SettlementEvent) {
	event.Type = models.SettlementEventFail
	r.record(ctx, event)
}

func (r *eventRecorder) record(ctx context.Context, event *models.SettlementEvent) {
	event.CreatedAt = r.clock.Now()
	if err := r.repo.Create(ctx, event); err != nil {
		slog.Error("Failed to record settlement event", "error", err, "type", event.Type, "uid", event.UID, "dateKey", event.DateKey)
	}
}
