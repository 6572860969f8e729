package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/crownbid-backend/internal/middleware"
	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// SettlementHandler handles the nightly trigger and the operator overrides
type SettlementHandler struct {
	settlementService services.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementService services.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

// SettleCrown handles POST /cron/settle-crown. With ?force=1 it only clears
// the lock.
func (h *SettlementHandler) SettleCrown(c *gin.Context) {
	if c.Query("force") == "1" {
		dateKey, err := h.settlementService.ForceUnlock(c.Request.Context(), "cron")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "forcedUnlock": true, "dateKey": dateKey})
		return
	}

	result, err := h.settlementService.RunNightly(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	switch result.Outcome {
	case models.OutcomeWon:
		c.JSON(http.StatusOK, gin.H{
			"ok":              true,
			"winnerUid":       result.WinnerUID,
			"amountCents":     result.AmountCents,
			"paymentIntentId": result.PaymentIntentID,
			"dateKey":         result.DateKey,
			"attempts":        result.Attempts,
		})
	case models.OutcomeAlreadySettled, models.OutcomeAlreadySettling:
		c.JSON(http.StatusOK, gin.H{"ok": true, "didNothing": true, "reason": result.Outcome, "dateKey": result.DateKey})
	case models.OutcomeNoCandidates:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "No offers found", "dateKey": result.DateKey})
	case models.OutcomeNoActiveCandidates:
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "No active offers found", "dateKey": result.DateKey})
	default:
		c.JSON(http.StatusPaymentRequired, gin.H{"ok": false, "error": "All top offers failed", "dateKey": result.DateKey, "attempts": result.Attempts})
	}
}

// AssignCrownRequest is the body of POST /admin/assign-crown-now
type AssignCrownRequest struct {
	TargetUID   string   `json:"targetUid"`
	UID         string   `json:"uid"`
	AmountCents *float64 `json:"amountCents"`
}

// AssignCrownNow handles POST /admin/assign-crown-now
func (h *SettlementHandler) AssignCrownNow(c *gin.Context) {
	var request AssignCrownRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
	}
	target := request.TargetUID
	if target == "" {
		target = request.UID
	}

	result, err := h.settlementService.AssignNow(c.Request.Context(), middleware.UserID(c), target, request.AmountCents)
	if err != nil {
		var aerr *services.AssignError
		if errors.As(err, &aerr) {
			body := gin.H{"error": aerr.Reason}
			if aerr.StripeStatus != "" {
				body["stripeStatus"] = aerr.StripeStatus
			}
			if aerr.PaymentIntentID != "" {
				body["paymentIntentId"] = aerr.PaymentIntentID
			}
			if aerr.Err != nil && aerr.Status >= http.StatusInternalServerError {
				body["details"] = aerr.Err.Error()
			}
			c.JSON(aerr.Status, body)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"uid":             result.UID,
		"amountCents":     result.AmountCents,
		"paymentIntentId": result.PaymentIntentID,
		"dateKey":         result.DateKey,
	})
}

// UnlockCrown handles POST /admin/crown/unlock
func (h *SettlementHandler) UnlockCrown(c *gin.Context) {
	dateKey, err := h.settlementService.ForceUnlock(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "forcedUnlock": true, "dateKey": dateKey})
}

// ListCandidates handles GET /admin/candidates: the pool in the order the
// next nightly run would try it
func (h *SettlementHandler) ListCandidates(c *gin.Context) {
	ranked, err := h.settlementService.PreviewRanking(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rank candidates: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": ranked, "count": len(ranked)})
}
