package handlers

import (
	"net/http"
	"strconv"

	"github.com/ArowuTest/crownbid-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// CrownHandler serves the read side of the crown
type CrownHandler struct {
	crownStatusService services.CrownStatusService
}

// NewCrownHandler creates a new CrownHandler
func NewCrownHandler(crownStatusService services.CrownStatusService) *CrownHandler {
	return &CrownHandler{
		crownStatusService: crownStatusService,
	}
}

// GetPublicCrown handles GET /crown
func (h *CrownHandler) GetPublicCrown(c *gin.Context) {
	crown, err := h.crownStatusService.PublicCrown(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load crown"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"crown": crown})
}

// GetCrownStatus handles GET /admin/crown-status
func (h *CrownHandler) GetCrownStatus(c *gin.Context) {
	view, err := h.crownStatusService.AdminView(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"status":           view.Status,
		"user":             view.User,
		"snapshotChampion": view.SnapshotChampion,
		"userChampion":     view.UserChampion,
		"resolvedChampion": view.ResolvedChampion,
	})
}

// ListCrownEvents handles GET /admin/crown-events?dateKey=YYYY-MM-DD&limit=N
func (h *CrownHandler) ListCrownEvents(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	events, err := h.crownStatusService.RecentEvents(c.Request.Context(), c.Query("dateKey"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// ListUsers handles GET /admin/users?limit=N
func (h *CrownHandler) ListUsers(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	users, err := h.crownStatusService.ListUsers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// queryLimit reads the optional limit parameter, answering 400 when it is
// malformed
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}
