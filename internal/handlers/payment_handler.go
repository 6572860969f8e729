package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/crownbid-backend/internal/middleware"
	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/ArowuTest/crownbid-backend/pkg/payments"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// PaymentHandler handles the card vaulting routes for the signed-in candidate
type PaymentHandler struct {
	paymentMethodService services.PaymentMethodService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentMethodService services.PaymentMethodService) *PaymentHandler {
	return &PaymentHandler{
		paymentMethodService: paymentMethodService,
	}
}

// PaymentMethodRequest names one card
type PaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

// CreateSetupIntent handles POST /payment/setup-intent
func (h *PaymentHandler) CreateSetupIntent(c *gin.Context) {
	result, err := h.paymentMethodService.CreateSetupIntent(c.Request.Context(), middleware.UserID(c), c.GetString(middleware.ContextUserEmail))
	if err != nil {
		writePaymentError(c, "Failed to create setup intent", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientSecret": result.ClientSecret, "customerId": result.CustomerID})
}

// AttachMethod handles POST /payment/attach-method
func (h *PaymentHandler) AttachMethod(c *gin.Context) {
	var request PaymentMethodRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing paymentMethodId"})
		return
	}
	if err := h.paymentMethodService.AttachMethod(c.Request.Context(), middleware.UserID(c), request.PaymentMethodID); err != nil {
		writePaymentError(c, "Failed to attach payment method", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetDefaultMethod handles POST /payment/default-method
func (h *PaymentHandler) SetDefaultMethod(c *gin.Context) {
	var request PaymentMethodRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing paymentMethodId"})
		return
	}
	card, err := h.paymentMethodService.SetDefaultMethod(c.Request.Context(), middleware.UserID(c), request.PaymentMethodID)
	if err != nil {
		writePaymentError(c, "Failed to set default payment method", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paymentMethodId": card.PaymentMethodID, "brand": card.Brand, "last4": card.Last4})
}

// DeleteMethod handles POST /payment/delete-method
func (h *PaymentHandler) DeleteMethod(c *gin.Context) {
	var request PaymentMethodRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing paymentMethodId"})
		return
	}
	if err := h.paymentMethodService.DetachMethod(c.Request.Context(), middleware.UserID(c), request.PaymentMethodID); err != nil {
		writePaymentError(c, "Failed to detach payment method", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Deactivate handles POST /payment/deactivate
func (h *PaymentHandler) Deactivate(c *gin.Context) {
	if err := h.paymentMethodService.Deactivate(c.Request.Context(), middleware.UserID(c)); err != nil {
		writePaymentError(c, "Failed to deactivate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func writePaymentError(c *gin.Context, msg string, err error) {
	var perr *payments.Error
	switch {
	case errors.Is(err, services.ErrCandidateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, services.ErrPaymentMethodConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Payment method belongs to a different customer"})
	case errors.Is(err, services.ErrNoPaymentProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No payment customer on file; create a setup intent first"})
	case errors.As(err, &perr) && perr.HTTPStatus >= 400 && perr.HTTPStatus < 500:
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": perr.Message})
	default:
		slog.Error(msg, "error", err, "uid", middleware.UserID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": err.Error()})
	}
}
