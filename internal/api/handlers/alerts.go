package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/binderbay/backend/internal/alerts"
	"github.com/binderbay/backend/internal/models"
)

type AlertHandler struct {
	service *alerts.Service
}

func NewAlertHandler(service *alerts.Service) *AlertHandler {
	return &AlertHandler{service: service}
}

// CreateAlert creates a price alert owned by the caller
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

// ListAlerts lists the caller's alerts with cursor pagination
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	items, next, err := h.service.List(c.Request.Context(), userID, c.Query("cursor"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":      items,
		"next_cursor": next,
	})
}

// UpdateAlert applies a subset of {active, threshold_cents}
func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert removes an owned alert
func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps service errors to HTTP responses. Not-owner gets the same
// body as not-found so the API does not leak which alert IDs exist.
func (h *AlertHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alerts.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, alerts.ErrNotFound), errors.Is(err, alerts.ErrNotOwner):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
