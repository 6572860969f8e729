package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ArowuTest/crownbid-backend/internal/middleware"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// QueueHandler serves the public bid queue
type QueueHandler struct {
	queueService services.QueueService
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(queueService services.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

// SyncQueue handles POST /queue/sync for the signed-in candidate
func (h *QueueHandler) SyncQueue(c *gin.Context) {
	entry, err := h.queueService.Sync(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entry": entry})
}

// ListQueue handles GET /queue
func (h *QueueHandler) ListQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.queueService.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
